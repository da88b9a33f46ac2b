package livecalls

import "github.com/MikeSquared-Agency/supportdesk/internal/support"

var customerNames = []string{
	"Sarah Connor", "James Wilson", "Emily Zhang", "Marcus Johnson",
	"Priya Sharma", "David Kim", "Rachel Green", "Alex Thompson",
	"Maria Rodriguez", "Chris O'Brien",
}

var intents = []string{
	"Technical Support", "Billing Inquiry", "Account Setup",
	"Feature Request", "Bug Report", "General Question",
	"Cancellation", "Upgrade Request",
}

var plans = []string{"Starter", "Professional", "Enterprise", "Custom"}

func ai(text string) support.TranscriptLine   { return support.TranscriptLine{Sender: "ai", Text: text} }
func user(text string) support.TranscriptLine { return support.TranscriptLine{Sender: "user", Text: text} }

var sampleTranscripts = [][]support.TranscriptLine{
	{
		user("Hi, I'm having issues with the API integration. The webhook endpoint keeps timing out."),
		ai("I understand you're experiencing webhook timeouts. Let me look into your account configuration. Could you share the endpoint URL you're using?"),
		user("Sure, it's https://api.ourservice.com/webhooks/receive. It was working fine until yesterday."),
		ai("Thank you. I can see the endpoint is responding with a 504 status. Your timeout threshold is set to 3 seconds. I'd recommend increasing it to 10 seconds given your plan's payload size."),
	},
	{
		user("I need to speak with someone about my billing. I was charged twice this month."),
		ai("I'm sorry to hear about the double charge. Let me pull up your billing history to investigate."),
		user("It's under the email john@example.com."),
		ai("I can see the duplicate charge from Feb 10th. I'll initiate a refund for the extra $49.99 right away."),
	},
	{
		user("How do I set up SSO for my team?"),
		ai("Great question! SSO is available on Enterprise plans. You can configure it under Settings > Security > Single Sign-On."),
		user("We're on the Professional plan. Can we upgrade?"),
		ai("Absolutely! I can help you upgrade right now. The Enterprise plan includes SSO, priority support, and advanced analytics."),
	},
	{
		user("I need to speak with a manager right now."),
		ai("I understand your concern. Let me connect you with a team member who can help. Could you briefly describe the issue?"),
	},
}
