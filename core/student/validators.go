package student

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kikundi/core/user"
)

// InitValidators registers the student validators on `validate`.
// user.InitValidators must have been called for the password policy translations.
func InitValidators(validate *validator.Validate, _ ut.Translator) {
	validate.RegisterStructValidation(studentStructValidation, NewStudent{}, UpdateStudent{})
}

// studentStructValidation applies the password policy to explicitly provided passwords.
func studentStructValidation(sl validator.StructLevel) {
	switch st := sl.Current().Interface().(type) {
	case NewStudent:
		if st.Password != "" {
			user.ValidatePassword(sl, st.Password, st.Name, st.Email)
		}
	case UpdateStudent:
		if st.Password != "" {
			var name, email string
			if st.Name != nil {
				name = *st.Name
			}
			if st.Email != nil {
				email = *st.Email
			}
			user.ValidatePassword(sl, st.Password, name, email)
		}
	}
}
