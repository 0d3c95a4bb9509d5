package postmark

// Config holds Postmark settings.
type Config struct {
	ServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	AccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail  string `env:"SENDER_EMAIL,required"`
	SupportEmail string `env:"SUPPORT_EMAIL,required"`
	// MessageStream selects the Postmark stream; transactional by default.
	MessageStream string `env:"POSTMARK_MESSAGE_STREAM" envDefault:"outbound"`
}
