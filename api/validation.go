package api

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"wingo/models"
)

var registerOnce sync.Once

// registerValidators adds the domain tags to gin's validator:
// color (red|green|violet), game (color|crash) and money (positive, at most 2 decimals)
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("color", func(fl validator.FieldLevel) bool {
			_, err := models.ParseColor(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("game", func(fl validator.FieldLevel) bool {
			_, err := models.ParseGameKind(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("money", func(fl validator.FieldLevel) bool {
			_, ok := parseMoney(fl.Field().String())
			return ok
		})
	})
}

func parseMoney(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() || !d.Equal(d.Round(2)) {
		return decimal.Zero, false
	}
	return d, true
}
