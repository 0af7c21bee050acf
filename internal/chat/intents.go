package chat

import "regexp"

// Intent is a keyword-triggered topic answered from a canned pool.
type Intent string

const (
	IntentVoucher   Intent = "voucher"
	IntentFinancing Intent = "financing"
	IntentTradeIn   Intent = "trade-in"
)

// Checked in order; the first match wins.
var intentPatterns = []struct {
	intent Intent
	re     *regexp.Regexp
}{
	{IntentVoucher, regexp.MustCompile(`(?i)\bvouchers?\b`)},
	{IntentFinancing, regexp.MustCompile(`(?i)\b(?:credit|financ(?:e|ed|ing)|loans?|pre-?approv(?:al|ed)|down payment)\b`)},
	{IntentTradeIn, regexp.MustCompile(`(?i)\btrade[\s-]?ins?\b|\btrad(?:e|ing) (?:in )?my\b`)},
}

var intentReplies = map[Intent][]string{
	IntentVoucher: {
		"You're in luck! I can definitely help you get the best possible deal. Let's schedule a time for you to come in, and I'll make sure you're taken care of. We have some amazing offers available right now. When would be a good time for you to visit?",
		"Great question! Vouchers and special offers are handled in person so we can match you with the best deal available. What day works for you to stop by? I'd just need your name and a good phone number.",
		"We'd be happy to honor your voucher! Bring it with you and our team will apply it toward your purchase. When would you like to come in?",
	},
	IntentFinancing: {
		"Our finance team works with all kinds of credit situations and can often find options other places can't. The fastest way is a quick visit. What day and time would work for you?",
		"We have financing options for first-time buyers, rebuilding credit, and everything in between. If you share your name and phone number, a finance specialist can reach out with next steps.",
		"Happy to help with financing! We work with a number of lenders to find a payment that fits your budget. Would you like to set up a time to sit down with our finance team?",
	},
	IntentTradeIn: {
		"We'd love to look at your trade! Trade-in values depend on the vehicle's condition, so the best way to get a firm number is a quick in-person appraisal. When could you bring it by?",
		"Trading in can make your next vehicle much more affordable. Bring it by and we'll give you a no-obligation appraisal in about 20 minutes. What day works for you?",
		"Great, we accept trade-ins of all makes and models. If you let me know the year, make, and mileage, our team can prepare for your visit. When would you like to come in?",
	},
}

// DetectIntent returns the first canned intent the message matches.
func DetectIntent(text string) (Intent, bool) {
	for _, p := range intentPatterns {
		if p.re.MatchString(text) {
			return p.intent, true
		}
	}
	return "", false
}

// inventoryIntentRE marks messages that read as a stock question.
var inventoryIntentRE = regexp.MustCompile(`(?i)\b(?:inventory|in stock|do you (?:have|carry)|(?:have|got) any|show me|looking for an?|what (?:new|used|certified) |available (?:cars?|trucks?|suvs?|vehicles?))`)

// IsInventoryQuestion reports whether the message should go to the
// inventory search.
func IsInventoryQuestion(text string) bool {
	return inventoryIntentRE.MatchString(text)
}
