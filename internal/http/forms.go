package http

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"khidma/internal/core"
)

// Custom validation tags.
const (
	tagNotBlank = "notblank"
	tagMonth    = "month"
	tagAmount   = "amount"
)

// newValidator reports fields by their Arabic label and knows the month
// and amount formats used by the forms.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if l := fld.Tag.Get("label"); l != "" {
			return l
		}
		return fld.Name
	})
	_ = v.RegisterValidation(tagNotBlank, func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation(tagMonth, func(fl validator.FieldLevel) bool {
		_, err := core.ParseMonth(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation(tagAmount, func(fl validator.FieldLevel) bool {
		_, err := core.ParseAmountOrZero(fl.Field().String())
		return err == nil
	})
	return v
}

// validationMessage turns the first failing field into an Arabic message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "بيانات غير صالحة"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required", tagNotBlank:
		return fe.Field() + " مطلوب"
	case tagMonth:
		return fe.Field() + ": الشهر غير صالح"
	case tagAmount, "gt", "gte":
		return fe.Field() + ": المبلغ غير صالح"
	case "oneof":
		return fe.Field() + ": قيمة غير مسموحة"
	case "max", "lte":
		return fe.Field() + " أطول من المسموح"
	case "min":
		return fe.Field() + " أقل من المسموح"
	}
	return fe.Field() + " غير صالح"
}

// domainMessage maps service validation errors to what the operator sees.
func domainMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return "المبلغ غير صالح", true
	case errors.Is(err, core.ErrInvalidMonth):
		return "الشهر غير صالح", true
	case errors.Is(err, core.ErrEmptyName):
		return "الاسم مطلوب", true
	case errors.Is(err, core.ErrEmptySponsor):
		return "اختر الكفيل", true
	case errors.Is(err, core.ErrEmptyArea):
		return "اختر المنطقة", true
	case errors.Is(err, core.ErrEmptyCause):
		return "اختر البند", true
	case errors.Is(err, core.ErrInvalidType), errors.Is(err, core.ErrInvalidCaseType):
		return "النوع غير صالح", true
	case errors.Is(err, core.ErrPortionsExceedAmount):
		return "مجموع الثابت والزيادة والصدقات أكبر من المبلغ", true
	case errors.Is(err, core.ErrNotFound):
		return "غير موجود", true
	}
	return "", false
}

type collectForm struct {
	SponsorID     string `label:"الكفيل" validate:"required"`
	SponsorName   string
	Month         string `label:"الشهر" validate:"required,month"`
	Amount        string `label:"المبلغ" validate:"required,amount"`
	Fixed         string `label:"الثابت" validate:"omitempty,amount"`
	Extra         string `label:"الزيادة" validate:"omitempty,amount"`
	Sadaqat       string `label:"الصدقات" validate:"omitempty,amount"`
	Method        string `label:"طريقة الدفع" validate:"required,oneof=instapay cash bank"`
	ReceivedBy    string
	AdvanceType   string `label:"نوع الدفعة" validate:"omitempty,oneof=monthly annual semi_annual months_in_advance"`
	AdvanceMonths int    `label:"عدد الشهور" validate:"gte=1,lte=24"`
	Notes         string `label:"ملاحظات" validate:"max=500"`
	OCRRaw        string `validate:"max=10000"`
}

type sponsorForm struct {
	Name        string `label:"اسم الكفيل" validate:"notblank,max=200"`
	Phone       string `label:"الهاتف" validate:"max=30"`
	Frequency   string `label:"دورية الدفع" validate:"omitempty,oneof=monthly annual semi_annual"`
	Responsible string
	Notes       string `label:"ملاحظات" validate:"max=500"`
}

type caseForm struct {
	ChildName    string `label:"اسم الطفل" validate:"notblank,max=200"`
	GuardianName string `label:"اسم ولي الأمر" validate:"max=200"`
	AreaID       string `label:"المنطقة" validate:"required"`
	Type         string `label:"الفئة" validate:"omitempty,oneof=orphan vulnerable student medical special"`
	SponsorID    string
	Fixed        string `label:"المبلغ الثابت" validate:"omitempty,amount"`
	Notes        string `label:"ملاحظات" validate:"max=500"`
}

type settleCaseForm struct {
	Month        string `label:"الشهر" validate:"required,month"`
	AreaID       string
	ChildName    string `label:"اسم الطفل" validate:"notblank,max=200"`
	GuardianName string `label:"اسم ولي الأمر" validate:"max=200"`
	SponsorName  string `label:"اسم الكفيل" validate:"notblank,max=200"`
	Type         string `label:"الفئة" validate:"omitempty,oneof=orphan vulnerable student medical special"`
	Fixed        string `label:"المبلغ الثابت" validate:"required,amount"`
}

type outflowForm struct {
	Month           string `label:"الشهر" validate:"required,month"`
	CaseID          string
	RecipientName   string `label:"اسم المستفيد" validate:"required_without=CaseID,max=200"`
	RecipientDetail string `label:"تفاصيل" validate:"max=300"`
	Amount          string `label:"المبلغ" validate:"required,amount"`
	Reason          string `label:"السبب" validate:"max=300"`
	ApprovedBy      string
}

type sadaqatForm struct {
	Type        string `label:"النوع" validate:"required,oneof=inflow outflow"`
	Month       string `label:"الشهر" validate:"required,month"`
	Amount      string `label:"المبلغ" validate:"required,amount"`
	Cause       string `label:"البند" validate:"notblank,max=100"`
	DonorName   string `label:"اسم المتبرع" validate:"max=200"`
	Description string `label:"الوصف" validate:"max=300"`
	Notes       string `label:"ملاحظات" validate:"max=500"`
	CaseID      string
}
