package jobs

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/Windi-Fikriyansyah/homeguard_api/internal/models"
)

var (
	zipCodeRe  = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	photoURLRe = regexp.MustCompile(`(?i)^https?://.+\.(jpg|jpeg|png|gif)$`)
)

// CreateInput carries the client-supplied fields of a new job. Optional
// fields left at their zero value get the documented defaults.
type CreateInput struct {
	Title             string
	Description       string
	Category          models.JobCategory
	Urgency           models.JobUrgency
	Address           string
	ZipCode           string
	PreferredDate     time.Time
	EstimatedDuration *int
	MaxBudget         *float64
	Photos            []string
	Notes             string
}

// ValidationError lists every violated constraint, keyed by field.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// normalize trims strings and fills defaults in place.
func (in *CreateInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Address = strings.TrimSpace(in.Address)
	in.ZipCode = strings.TrimSpace(in.ZipCode)
	in.Category = models.JobCategory(strings.ToLower(strings.TrimSpace(string(in.Category))))
	in.Urgency = models.JobUrgency(strings.ToLower(strings.TrimSpace(string(in.Urgency))))
	if in.Urgency == "" {
		in.Urgency = models.UrgencyNormal
	}
	if in.EstimatedDuration == nil {
		d := models.DefaultEstimatedDuration
		in.EstimatedDuration = &d
	}
	if in.MaxBudget == nil {
		b := float64(models.DefaultMaxBudget)
		in.MaxBudget = &b
	}
}

// Validate checks every field and reports all violations at once.
func (in CreateInput) Validate() error {
	duration := 0
	if in.EstimatedDuration != nil {
		duration = *in.EstimatedDuration
	}
	budget := 0.0
	if in.MaxBudget != nil {
		budget = *in.MaxBudget
	}

	err := validation.Errors{
		"title": validation.Validate(in.Title,
			validation.Required, validation.RuneLength(5, 100)),
		"description": validation.Validate(in.Description,
			validation.Required, validation.RuneLength(10, 1000)),
		"category": validation.Validate(in.Category,
			validation.Required, validation.In(
				models.CategoryHVAC,
				models.CategoryPlumbing,
				models.CategoryElectrical,
				models.CategoryAppliance,
				models.CategoryOther,
			).Error("must be one of hvac, plumbing, electrical, appliance, other")),
		"urgency": validation.Validate(in.Urgency,
			validation.In(
				models.UrgencyNormal,
				models.UrgencyUrgent,
				models.UrgencyEmergency,
			).Error("must be one of normal, urgent, emergency")),
		"address": validation.Validate(in.Address, validation.Required),
		"zipCode": validation.Validate(in.ZipCode,
			validation.Required, validation.Match(zipCodeRe).Error("must look like 12345 or 12345-6789")),
		"preferredDate": validation.Validate(in.PreferredDate,
			validation.By(requiredTime)),
		"estimatedDuration": validation.Validate(duration,
			validation.By(intRange(30, 480))),
		"maxBudget": validation.Validate(budget,
			validation.By(nonNegative)),
		"photos": validation.Validate(in.Photos,
			validation.By(photoURLs)),
	}.Filter()
	if err == nil {
		return nil
	}

	ve := &ValidationError{}
	var errs validation.Errors
	if errors.As(err, &errs) {
		for field, fe := range errs {
			ve.Add(field, fe.Error())
		}
		return ve
	}
	return err
}

func requiredTime(v interface{}) error {
	t, _ := v.(time.Time)
	if t.IsZero() {
		return errors.New("cannot be blank")
	}
	return nil
}

func intRange(min, max int) validation.RuleFunc {
	return func(v interface{}) error {
		n, _ := v.(int)
		if n < min || n > max {
			return fmt.Errorf("must be between %d and %d minutes", min, max)
		}
		return nil
	}
}

func nonNegative(v interface{}) error {
	f, _ := v.(float64)
	if f < 0 {
		return errors.New("must be no less than 0")
	}
	return nil
}

func photoURLs(v interface{}) error {
	urls, _ := v.([]string)
	for _, u := range urls {
		if !photoURLRe.MatchString(u) {
			return errors.New("invalid image URL format: " + u)
		}
	}
	return nil
}

// ValidPhotoURL reports whether u is an http(s) URL to a jpg, jpeg, png or gif.
func ValidPhotoURL(u string) bool {
	return photoURLRe.MatchString(u)
}
