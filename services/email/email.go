package emailsvc

import (
	"github.com/trezcool/escola/core"
)

// New returns the EmailService selected by conf.MailBackend; console is the default.
func New(conf *core.Config, logger core.Logger) core.EmailService {
	switch conf.MailBackend {
	case "sendgrid":
		return NewSendgridService(conf, logger)
	case "smtp":
		return NewSMTPService(conf, logger)
	default:
		return NewConsoleService(conf, logger)
	}
}
