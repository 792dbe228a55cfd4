package application

import (
	"fmt"

	gomail "gopkg.in/gomail.v2"
)

// An SMTPConfig contains the SMTP relay settings for outgoing
// submission notifications. An empty Server disables email delivery;
// the server then only logs what it would have sent. AdminEmail is the
// reviewer inbox for queue alerts; when empty, only submitter notices
// are sent.
type SMTPConfig struct {
	Server     string `toml:"server"`
	Port       int    `toml:"port"`
	Username   string `toml:"username,omitempty"`
	Password   string `toml:"password,omitempty"`
	From       string `toml:"from"`
	AdminEmail string `toml:"admin_email,omitempty"`
}

// A Mailer delivers submission lifecycle notices over SMTP. Delivery
// is strictly best-effort: failures are logged and never surfaced to
// the review workflow, so a broken relay can't block a review action.
type Mailer struct {
	conf   *SMTPConfig
	logger *Logger
}

// NewMailer constructs a Mailer over the given SMTP settings. conf may
// be nil, in which case every notice is a logged no-op.
func NewMailer(conf *SMTPConfig, logger *Logger) *Mailer {
	return &Mailer{conf: conf, logger: logger}
}

func (m *Mailer) send(to, subject, body string) {
	if m.conf == nil || m.conf.Server == "" {
		m.logger.Debug("Email delivery disabled", "to", to, "subject", subject)
		return
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.conf.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	d := gomail.NewDialer(m.conf.Server, m.conf.Port, m.conf.Username, m.conf.Password)
	if err := d.DialAndSend(msg); err != nil {
		m.logger.Error("Cannot deliver notification email",
			"to", to, "subject", subject, "error", err)
		return
	}
	m.logger.Info("Notification email sent", "to", to, "subject", subject)
}

// SubmissionReceived notifies a submitter that their bot entered the
// review queue.
func (m *Mailer) SubmissionReceived(email, name, id string) {
	m.send(email, fmt.Sprintf("Bot %q received for review", name),
		fmt.Sprintf("Your bot %q has entered the review queue.\n\n"+
			"Submission id: %s\n\n"+
			"You will be notified when a reviewer reaches a decision.\n", name, id))
}

// SubmissionApproved notifies a submitter that their bot was approved
// and is now in the tournament roster.
func (m *Mailer) SubmissionApproved(email, name string) {
	m.send(email, fmt.Sprintf("Bot %q approved", name),
		fmt.Sprintf("Your bot %q has been approved and added to the tournament roster.\n\n"+
			"Its code is stored encrypted under the password you supplied at\n"+
			"submission time; keep that password safe, it cannot be recovered.\n", name))
}

// SubmissionRejected notifies a submitter of a rejection and its
// reason.
func (m *Mailer) SubmissionRejected(email, name, reason string) {
	m.send(email, fmt.Sprintf("Bot %q rejected", name),
		fmt.Sprintf("Your bot %q has been rejected.\n\nReason: %s\n\n"+
			"You may submit a new bot under the same name.\n", name, reason))
}

// RevisionRequested notifies a submitter that a reviewer asked for
// changes.
func (m *Mailer) RevisionRequested(email, name, feedback string) {
	m.send(email, fmt.Sprintf("Bot %q needs revision", name),
		fmt.Sprintf("A reviewer has asked for changes to your bot %q.\n\n"+
			"Feedback: %s\n\n"+
			"Resubmit the revised code with your submission id to return it\n"+
			"to the review queue.\n", name, feedback))
}

func (m *Mailer) adminEmail() string {
	if m.conf == nil {
		return ""
	}
	return m.conf.AdminEmail
}

// NewSubmissionAlert alerts the reviewer inbox that a new bot entered
// the review queue.
func (m *Mailer) NewSubmissionAlert(name, id string) {
	to := m.adminEmail()
	if to == "" {
		m.logger.Debug("No reviewer inbox configured", "bot", name)
		return
	}
	m.send(to, fmt.Sprintf("New bot submission %q", name),
		fmt.Sprintf("Bot %q is awaiting review.\n\nSubmission id: %s\n", name, id))
}

// ResubmissionAlert alerts the reviewer inbox that a revised bot
// returned to the review queue.
func (m *Mailer) ResubmissionAlert(name, id string) {
	to := m.adminEmail()
	if to == "" {
		m.logger.Debug("No reviewer inbox configured", "bot", name)
		return
	}
	m.send(to, fmt.Sprintf("Bot %q resubmitted", name),
		fmt.Sprintf("Bot %q has been revised and is back in the review queue.\n\n"+
			"Submission id: %s\n", name, id))
}
