package emailsvc

import (
	"net/mail"

	"github.com/pkg/errors"
	"gopkg.in/gomail.v2"

	"github.com/trezcool/escola/core"
)

type smtpService struct {
	dialer     *gomail.Dialer
	from       string
	fromName   string
	subjPrefix string
	ctxData    core.ContextData
	logger     core.Logger
}

var _ core.EmailService = (*smtpService)(nil)

func NewSMTPService(conf *core.Config, logger core.Logger) core.EmailService {
	d := gomail.NewDialer(conf.SMTP.Host, conf.SMTP.Port, conf.SMTP.Username, conf.SMTP.Password)
	d.SSL = conf.SMTP.SSL
	from := conf.FromAddress()
	return &smtpService{
		dialer:     d,
		from:       from.Address,
		fromName:   from.Name,
		subjPrefix: "[" + conf.AppName + "] ",
		ctxData:    core.ContextData{AppName: conf.AppName, BaseURL: conf.Server.BaseURL},
		logger:     logger,
	}
}

func (svc smtpService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		go func() {
			if err := msg.Render(svc.ctxData); err != nil {
				svc.logger.Error("rendering email", errors.Wrap(err, "rendering email"))
				return
			}
			if !(msg.HasRecipients() && msg.HasContent()) {
				return
			}
			if err := svc.dialer.DialAndSend(svc.prepare(*msg)); err != nil {
				svc.logger.Error("sending email", errors.Wrap(err, "sending email"))
			}
		}()
	}
}

func (svc smtpService) prepare(msg core.EmailMessage) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", svc.from, svc.fromName)

	setAddrs := func(field string, addrs []string) {
		if len(addrs) > 0 {
			m.SetHeader(field, addrs...)
		}
	}
	format := func(list []mail.Address) []string {
		out := make([]string, 0, len(list))
		for _, a := range list {
			out = append(out, m.FormatAddress(a.Address, a.Name))
		}
		return out
	}
	setAddrs("To", format(msg.To))
	setAddrs("Cc", format(msg.Cc))
	setAddrs("Bcc", format(msg.Bcc))
	m.SetHeader("Subject", svc.subjPrefix+msg.Subject)

	m.SetBody("text/plain", msg.TextContent)
	if msg.HTMLContent != "" {
		m.AddAlternative("text/html", msg.HTMLContent)
	}
	return m
}
