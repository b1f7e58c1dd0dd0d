package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

type recordsQuery struct {
	Address  string `json:"address" validate:"required,len=34"`
	Page     int    `json:"page" validate:"gte=1"`
	PageSize int    `json:"page_size" validate:"gte=1,lte=500"`
}

func TestValidateStructSuccess(t *testing.T) {
	query := recordsQuery{
		Address:  "TLa2f6VPqDgRE67v1736s7bJ8Ray5wYjU7",
		Page:     1,
		PageSize: 100,
	}

	if err := ValidateStruct(query); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateStructFailures(t *testing.T) {
	query := recordsQuery{
		Address:  "",
		Page:     0,
		PageSize: 1000,
	}

	err := ValidateStruct(query)
	if err == nil {
		t.Fatal("expected validation error")
	}

	vErrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}

	if len(vErrs) != 3 {
		t.Fatalf("expected 3 validation errors, got %d", len(vErrs))
	}

	tags := map[string]string{}
	for _, v := range vErrs {
		tags[v.Field] = v.Tag
	}

	if tags["address"] != "required" || tags["page"] != "gte" || tags["page_size"] != "lte" {
		t.Fatalf("unexpected field tags: %v", tags)
	}
}

func TestRegisterValidation(t *testing.T) {
	err := RegisterValidation("lowercase_hex", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, ch := range value {
			if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') {
				return false
			}
		}
		return value != ""
	})
	if err != nil {
		t.Fatalf("register validation: %v", err)
	}

	type custom struct {
		Value string `validate:"lowercase_hex"`
	}

	if err := ValidateStruct(custom{Value: "41af"}); err != nil {
		t.Fatalf("expected validation to pass, got %v", err)
	}
	if err := ValidateStruct(custom{Value: "41AF"}); err == nil {
		t.Fatal("expected validation to fail for non-matching value")
	}
}

func TestValidateVarReportsFieldName(t *testing.T) {
	if err := ValidateVar("page_size", 10, "gte=1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	err := ValidateVar("page_size", 0, "gte=1")
	vErrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(vErrs) != 1 || vErrs[0].Field != "page_size" || vErrs[0].Tag != "gte" || vErrs[0].Param != "1" {
		t.Fatalf("unexpected validation errors: %+v", vErrs)
	}
}
