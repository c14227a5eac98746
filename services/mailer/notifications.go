package mailer

import (
	"fmt"
	"time"
)

// BidSealedMessage builds the confirmation sent after a bid is sealed.
// Only a hash prefix is included; the message is the bidder's proof of
// submission, not a channel for bid content.
func BidSealedMessage(tenderID, bidderID, bidHash string, timestamp time.Time) (subject, body, htmlBody string) {
	hashPrefix := bidHash
	if len(hashPrefix) > 32 {
		hashPrefix = hashPrefix[:32] + "..."
	}
	ts := timestamp.UTC().Format(time.RFC3339)

	subject = fmt.Sprintf("Bid Sealed Successfully - %s", tenderID)

	body = fmt.Sprintf(`Your bid has been successfully sealed.

Tender ID: %s
Bidder ID: %s
Bid Hash: %s
Timestamp: %s

This is your cryptographic proof of submission. Keep this for your records.

Tender Guardian
`, tenderID, bidderID, hashPrefix, ts)

	htmlBody = fmt.Sprintf(`<html>
<body style="font-family: monospace; background: #000; color: #fff; padding: 20px;">
    <h2 style="color: #00ff00;">BID SEALED SUCCESSFULLY</h2>
    <div style="background: #111; padding: 20px; border: 1px solid #333;">
        <p><strong>Tender ID:</strong> %s</p>
        <p><strong>Bidder ID:</strong> %s</p>
        <p><strong>Bid Hash:</strong> <code style="color: #00ff00;">%s</code></p>
        <p><strong>Timestamp:</strong> %s</p>
    </div>
    <p style="margin-top: 20px; color: #888;">This is your cryptographic proof of submission.</p>
    <p style="color: #888;">Tender Guardian</p>
</body>
</html>`, tenderID, bidderID, hashPrefix, ts)

	return subject, body, htmlBody
}
