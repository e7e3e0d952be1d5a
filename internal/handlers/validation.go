package handlers

import (
	"commentservice/internal/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// RegisterValidators adds the custom binding tags used by request bodies.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not go-playground/validator")
	}
	return v.RegisterValidation("reactiontype", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseReactionType(fl.Field().String())
		return ok
	})
}
