package command

const (
	helpReply = "WhatsApp Email Notifier Commands:\n\n" +
		"Basic Commands:\n" +
		"• help - Show this help message\n" +
		"• ping - Test connection\n" +
		"• check - Check unread emails\n" +
		"• about - About this service"

	pingReply = "Service is running successfully"

	aboutReply = "WhatsApp Email Notifier\n\n" +
		"This service allows you to check your emails via WhatsApp using IMAP.\n\n" +
		"Powered by Go, go-imap, and Twilio"

	defaultReply = "Welcome to WhatsApp Email Notifier!\n\n" +
		"Send \"help\" to see all available commands.\n" +
		"Send \"check\" to check your unread emails."
)
