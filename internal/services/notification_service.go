// internal/services/notification_service.go
package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/sirupsen/logrus"

	"github.com/heimly/heimly-backend/internal/config"
	"github.com/heimly/heimly-backend/internal/models"
)

// Notifier is the outbound messaging boundary. Implementations must never
// let a delivery failure propagate into workflow transactions; callers fire
// notifications after commit and only log errors.
type Notifier interface {
	SendVerificationEmail(email, token string) error
	SendPhoneOTP(phoneNumber, code string) error
	NotifyListingSubmitted(listing *models.Listing, ownerEmail string) error
	NotifyListingApproved(listing *models.Listing, ownerEmail string) error
	NotifyListingRejected(listing *models.Listing, ownerEmail, reason string) error
	NotifyIdentityApproved(profile *models.OwnerProfile, ownerEmail string) error
	NotifyIdentityRejected(profile *models.OwnerProfile, ownerEmail, notes string) error
	NotifyDocumentRejected(doc *models.ListingDocument, ownerEmail, comment string) error
}

type NotificationService struct {
	config *config.Config
}

type EmailTemplate struct {
	Subject string
	Body    string
}

func NewNotificationService(config *config.Config) *NotificationService {
	return &NotificationService{config: config}
}

func (s *NotificationService) SendVerificationEmail(email, token string) error {
	data := map[string]interface{}{
		"VerificationURL": fmt.Sprintf("%s/account/verify-email/%s", s.config.Frontend.BaseURL, token),
		"PlatformName":    s.config.Email.FromName,
	}

	subject := "Verify your Heimly email address"
	body, err := s.renderTemplate(s.getEmailTemplate("email_verification").Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(email, subject, body)
}

func (s *NotificationService) SendPhoneOTP(phoneNumber, code string) error {
	// No SMS gateway is wired up yet; log the code so development flows can
	// complete. TODO: integrate the Termii sender once the account is provisioned.
	logrus.WithFields(logrus.Fields{
		"phone_number": phoneNumber,
	}).Infof("SMS OTP would be sent: %s", code)
	return nil
}

func (s *NotificationService) NotifyListingSubmitted(listing *models.Listing, ownerEmail string) error {
	if ownerEmail == "" {
		return nil
	}

	data := map[string]interface{}{
		"Title": listing.Title,
	}

	subject := "Listing Submitted: " + listing.Title
	body, err := s.renderTemplate(s.getEmailTemplate("listing_submitted").Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(ownerEmail, subject, body)
}

func (s *NotificationService) NotifyListingApproved(listing *models.Listing, ownerEmail string) error {
	if ownerEmail == "" {
		return nil
	}

	data := map[string]interface{}{
		"Title":      listing.Title,
		"ListingURL": fmt.Sprintf("%s/listings/%s", s.config.Frontend.BaseURL, listing.ID),
	}

	subject := "Listing Approved: " + listing.Title
	body, err := s.renderTemplate(s.getEmailTemplate("listing_approved").Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(ownerEmail, subject, body)
}

func (s *NotificationService) NotifyListingRejected(listing *models.Listing, ownerEmail, reason string) error {
	if ownerEmail == "" {
		return nil
	}

	data := map[string]interface{}{
		"Title":  listing.Title,
		"Reason": reason,
	}

	subject := "Listing Review: " + listing.Title
	body, err := s.renderTemplate(s.getEmailTemplate("listing_rejected").Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(ownerEmail, subject, body)
}

func (s *NotificationService) NotifyIdentityApproved(profile *models.OwnerProfile, ownerEmail string) error {
	if ownerEmail == "" {
		return nil
	}

	data := map[string]interface{}{
		"PlatformName": s.config.Email.FromName,
	}

	subject := "Identity Verified"
	body, err := s.renderTemplate(s.getEmailTemplate("identity_approved").Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(ownerEmail, subject, body)
}

func (s *NotificationService) NotifyIdentityRejected(profile *models.OwnerProfile, ownerEmail, notes string) error {
	if ownerEmail == "" {
		return nil
	}

	data := map[string]interface{}{
		"Notes": notes,
	}

	subject := "Identity Verification Update"
	body, err := s.renderTemplate(s.getEmailTemplate("identity_rejected").Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(ownerEmail, subject, body)
}

func (s *NotificationService) NotifyDocumentRejected(doc *models.ListingDocument, ownerEmail, comment string) error {
	if ownerEmail == "" {
		return nil
	}

	data := map[string]interface{}{
		"DocType": doc.DocType,
		"Comment": comment,
	}

	subject := "Document Needs Resubmission"
	body, err := s.renderTemplate(s.getEmailTemplate("document_rejected").Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(ownerEmail, subject, body)
}

// Helper methods
func (s *NotificationService) sendEmail(to, subject, body string) error {
	if s.config.Email.SMTPHost == "" {
		// Email not configured, just log
		logrus.WithFields(logrus.Fields{
			"to":      to,
			"subject": subject,
		}).Info("Email would be sent")
		return nil
	}

	auth := smtp.PlainAuth("", s.config.Email.SMTPUsername, s.config.Email.SMTPPassword, s.config.Email.SMTPHost)

	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s", to, subject, body))

	addr := fmt.Sprintf("%s:%s", s.config.Email.SMTPHost, s.config.Email.SMTPPort)
	return smtp.SendMail(addr, auth, s.config.Email.FromEmail, []string{to}, msg)
}

func (s *NotificationService) renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("email").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *NotificationService) getEmailTemplate(templateType string) EmailTemplate {
	templates := map[string]EmailTemplate{
		"email_verification": {
			Subject: "Verify your Heimly email address",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Verify your email</h2>
	<p>Click this link to verify your email address:</p>
	<a href="{{.VerificationURL}}">Verify Email</a>
	<p>Best regards,<br>{{.PlatformName}} Team</p>
</body>
</html>`,
		},
		"listing_submitted": {
			Subject: "Listing Submitted",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Listing submitted</h2>
	<p>Your listing '{{.Title}}' has been submitted for review. We'll notify you once it's been reviewed.</p>
	<p>Best regards,<br>Heimly Team</p>
</body>
</html>`,
		},
		"listing_approved": {
			Subject: "Listing Approved",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Listing approved</h2>
	<p>Great news! Your listing '{{.Title}}' has been approved and is now live on Heimly.</p>
	<a href="{{.ListingURL}}">View Listing</a>
	<p>Best regards,<br>Heimly Team</p>
</body>
</html>`,
		},
		"listing_rejected": {
			Subject: "Listing Review",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Your listing requires some changes</h2>
	<p>Your listing '{{.Title}}' requires some changes.</p>
	<p>Reason: {{.Reason}}</p>
	<p>Please update your listing and resubmit.</p>
	<p>Best regards,<br>Heimly Team</p>
</body>
</html>`,
		},
		"identity_approved": {
			Subject: "Identity Verified",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Identity verified</h2>
	<p>Your identity has been verified. You can now submit listings for review.</p>
	<p>Best regards,<br>{{.PlatformName}} Team</p>
</body>
</html>`,
		},
		"identity_rejected": {
			Subject: "Identity Verification Update",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Identity verification update</h2>
	<p>We could not verify your identity with the information provided.</p>
	<p>Notes: {{.Notes}}</p>
	<p>Please update your details and resubmit.</p>
	<p>Best regards,<br>Heimly Team</p>
</body>
</html>`,
		},
		"document_rejected": {
			Subject: "Document Needs Resubmission",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Document needs resubmission</h2>
	<p>Your {{.DocType}} document was reviewed and needs to be resubmitted.</p>
	<p>Reviewer comment: {{.Comment}}</p>
	<p>Best regards,<br>Heimly Team</p>
</body>
</html>`,
		},
	}

	if template, exists := templates[templateType]; exists {
		return template
	}

	return EmailTemplate{
		Subject: "Notification",
		Body:    "<p>{{.Message}}</p>",
	}
}
