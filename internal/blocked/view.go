// Package blocked builds the screen shown to a session whose application
// blocks a new submission.
package blocked

import (
	"fmt"
	"time"

	"loan-funnel/internal/gate"
	"loan-funnel/internal/models"
)

const (
	TitleUnsuccessful     = "Application Unsuccessful"
	TitleAlreadySubmitted = "Application Already Submitted"
	PartnerOffersLabel    = "Check MoneyLion Offers"
)

type Options struct {
	BlockWindow      time.Duration
	ContactPhone     string
	ContactPhoneURI  string
	PartnerOffersURL string
	SchedulerEnabled bool
	Hours            BusinessHours
}

type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Contact is the call-us block shown for approved applications.
type Contact struct {
	Message              string `json:"message"`
	AppointmentScheduled bool   `json:"appointmentScheduled"`
	Appointment          string `json:"appointment,omitempty"`
	Phone                string `json:"phone"`
	PhoneURI             string `json:"phoneUri"`
	ShowScheduler        bool   `json:"showScheduler"`
}

type Detail struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type View struct {
	Title          string   `json:"title"`
	Status         string   `json:"status"`
	Message        string   `json:"message,omitempty"`
	PartnerOffer   *Link    `json:"partnerOffer,omitempty"`
	Contact        *Contact `json:"contact,omitempty"`
	Details        []Detail `json:"details,omitempty"`
	ExpirationDate string   `json:"expirationDate"`
	DaysRemaining  int      `json:"daysRemaining"`
	ResetWarning   string   `json:"resetWarning,omitempty"`
}

type Builder struct {
	opts Options
}

func NewBuilder(opts Options) *Builder {
	if opts.BlockWindow <= 0 {
		opts.BlockWindow = models.DefaultBlockWindow
	}
	if opts.ContactPhone == "" {
		opts.ContactPhone = "(855) 303-1455"
	}
	if opts.ContactPhoneURI == "" {
		opts.ContactPhoneURI = "tel:8553031455"
	}
	return &Builder{opts: opts}
}

// Build returns nil when rec is nil. Dates are rendered in the visitor's
// location.
func (b *Builder) Build(rec *models.ApplicationRecord, now time.Time, visitor *time.Location) *View {
	if rec == nil {
		return nil
	}

	expiration := FormatDate(rec.BlockExpiresAt(b.opts.BlockWindow), visitor)
	view := &View{
		Status:         string(rec.Status),
		ExpirationDate: expiration,
		DaysRemaining:  rec.DaysRemaining(now, b.opts.BlockWindow),
	}

	if rec.Status == models.StatusUnsuccessful {
		view.Title = TitleUnsuccessful
		view.Message = fmt.Sprintf("We were unable to verify your information. You can try again after %s.", expiration)
		if b.opts.PartnerOffersURL != "" {
			view.PartnerOffer = &Link{Label: PartnerOffersLabel, URL: b.opts.PartnerOffersURL}
		}
		return view
	}

	view.Title = TitleAlreadySubmitted
	view.Message = fmt.Sprintf("You can apply again after %s", expiration)
	view.ResetWarning = gate.ResetWarning
	view.Details = details(rec.FormData)

	if rec.Status == models.StatusSuccessful {
		view.Contact = b.contact(rec, now, visitor)
	}
	return view
}

func (b *Builder) contact(rec *models.ApplicationRecord, now time.Time, visitor *time.Location) *Contact {
	c := &Contact{
		Phone:    b.opts.ContactPhone,
		PhoneURI: b.opts.ContactPhoneURI,
	}

	if at, ok := rec.ScheduledAt(); ok {
		c.AppointmentScheduled = true
		c.Appointment = FormatAppointment(at, visitor)
		c.Message = "For immediate assistance before your appointment, call:"
		return c
	}

	if !b.opts.SchedulerEnabled || b.opts.Hours.IsOpen(now) {
		c.Message = "For immediate assistance, call us at"
		return c
	}

	c.Message = "Our team is currently offline. You can:"
	c.ShowScheduler = true
	return c
}

func details(f models.FormData) []Detail {
	var out []Detail
	if f.LoanAmount > 0 {
		out = append(out, Detail{Label: "Loan Amount", Value: FormatCurrency(f.LoanAmount)})
	}
	if f.LoanPurpose != "" {
		out = append(out, Detail{Label: "Loan Purpose", Value: LoanPurposeLabel(f.LoanPurpose)})
	}
	if f.EmploymentStatus != "" {
		out = append(out, Detail{Label: "Employment Status", Value: EmploymentStatusLabel(f.EmploymentStatus)})
	}
	if f.PropertyStatus != "" {
		out = append(out, Detail{Label: "Property Status", Value: PropertyStatusLabel(f.PropertyStatus)})
	}
	if f.EducationLevel != "" {
		out = append(out, Detail{Label: "Education Level", Value: EducationLevelLabel(f.EducationLevel)})
	}
	return out
}
