package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// CatDraft is the full set of writable spy cat fields.
type CatDraft struct {
	Name              string           `json:"name"`
	YearsOfExperience *int             `json:"years_of_experience"`
	Salary            *decimal.Decimal `json:"salary"`
	BreedName         string           `json:"breed_name"`
}

// CatPatch is a partial spy cat update; unset fields keep their value.
type CatPatch struct {
	Name              Optional[string]          `json:"name"`
	YearsOfExperience Optional[int]             `json:"years_of_experience"`
	Salary            Optional[decimal.Decimal] `json:"salary"`
	BreedName         Optional[string]          `json:"breed_name"`
}

// Patch converts a draft into a patch that sets every field.
func (d CatDraft) Patch() CatPatch {
	p := CatPatch{Name: Some(d.Name), BreedName: Some(d.BreedName)}
	if d.YearsOfExperience != nil {
		p.YearsOfExperience = Some(*d.YearsOfExperience)
	}
	if d.Salary != nil {
		p.Salary = Some(*d.Salary)
	}
	return p
}

// RequireComplete checks that every draft field is present.
func (d CatDraft) RequireComplete() error {
	if strings.TrimSpace(d.BreedName) == "" {
		return NewError(ErrMissingField, "breed_name", "")
	}
	if strings.TrimSpace(d.Name) == "" {
		return NewError(ErrMissingField, "name", "")
	}
	if d.YearsOfExperience == nil {
		return NewError(ErrMissingField, "years_of_experience", "")
	}
	if d.Salary == nil {
		return NewError(ErrMissingField, "salary", "")
	}
	return nil
}

var salaryCeiling = decimal.New(1, SalaryMaxDigits-SalaryDecimalPlaces)

// ValidateCat checks the field constraints of a spy cat record.
func ValidateCat(cat SpyCat) error {
	name := strings.TrimSpace(cat.Name)
	if name == "" {
		return NewError(ErrMissingField, "name", "")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return NewError(ErrInvalidField, "name", "ensure this field has no more than %d characters", MaxNameLength)
	}
	if cat.YearsOfExperience < 0 {
		return NewError(ErrInvalidField, "years_of_experience", "must be zero or greater")
	}
	if cat.Salary.IsNegative() {
		return NewError(ErrInvalidField, "salary", "must be zero or greater")
	}
	if !cat.Salary.Equal(cat.Salary.Truncate(SalaryDecimalPlaces)) {
		return NewError(ErrInvalidField, "salary", "ensure there are no more than %d decimal places", SalaryDecimalPlaces)
	}
	if !cat.Salary.LessThan(salaryCeiling) {
		return NewError(ErrInvalidField, "salary", "ensure there are no more than %d digits in total", SalaryMaxDigits)
	}
	return nil
}
