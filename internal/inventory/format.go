package inventory

import (
	"fmt"
	"strings"
)

func conditionLabel(c Condition) string {
	switch c {
	case ConditionCertified:
		return "certified"
	case ConditionUsed:
		return "pre-owned"
	default:
		return "new"
	}
}

// FormatResults renders vehicles for a chat reply, or the no-results text
// when the list is empty. At most five vehicles are listed.
func FormatResults(vehicles []Vehicle, c Condition) string {
	if len(vehicles) == 0 {
		return FormatNoResults(c)
	}
	label := conditionLabel(c)

	var b strings.Builder
	fmt.Fprintf(&b, "Great news! I found some %s vehicles that I think you'll love:\n\n", label)
	for i, v := range vehicles {
		if i == maxResults {
			break
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, v.Title)
		if v.Price != "" {
			fmt.Fprintf(&b, "   • %s\n", v.Price)
		}
		if c != ConditionNew && v.Mileage != "" {
			fmt.Fprintf(&b, "   • %s\n", v.Mileage)
		}
		var details []string
		if v.Details.Exterior != "" {
			details = append(details, v.Details.Exterior+" exterior")
		}
		if v.Details.Interior != "" {
			details = append(details, v.Details.Interior+" interior")
		}
		if v.Details.Transmission != "" {
			details = append(details, v.Details.Transmission)
		}
		if v.Details.Engine != "" {
			details = append(details, v.Details.Engine)
		}
		if len(details) > 0 {
			fmt.Fprintf(&b, "   • %s\n", strings.Join(details, " • "))
		}
		if v.DetailURL != "" {
			fmt.Fprintf(&b, "   %s\n", v.DetailURL)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "I'd love to schedule a time for you to come see any of these in person. "+
		"We're currently offering special deals on %s models. When would be a good time for you to stop by for a test drive?", label)
	return b.String()
}

// FormatNoResults is the reply when nothing matched.
func FormatNoResults(c Condition) string {
	return fmt.Sprintf("I'm currently checking our incoming inventory for the exact %s vehicle you're looking for. "+
		"We get new arrivals daily, and I'd be happy to let you know as soon as something matches.\n\n"+
		"In the meantime, would you like to:\n"+
		"• See some similar vehicles that just arrived?\n"+
		"• Get notified when your perfect match arrives?\n"+
		"• Schedule a visit to explore other options in person?", conditionLabel(c))
}
