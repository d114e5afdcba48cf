package controller

import (
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/service"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	questionTypeTag = "questiontype"
	meetLinkTag     = "meetlink"
)

var registerOnce sync.Once

// RegisterValidators 注册自定义校验标签，必须在任何绑定之前调用
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		// 错误信息使用 JSON 字段名
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		_ = v.RegisterValidation(questionTypeTag, questionTypeValidation)
		_ = v.RegisterValidation(meetLinkTag, meetLinkValidation)
	})
}

func questionTypeValidation(fl validator.FieldLevel) bool {
	return model.QuestionType(fl.Field().String()).Valid()
}

func meetLinkValidation(fl validator.FieldLevel) bool {
	return service.ValidMeetingLink(fl.Field().String())
}
