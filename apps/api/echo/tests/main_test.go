package tests

import (
	"log"
	"os"
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/secmun/podium/core"
	"github.com/secmun/podium/core/member"
	logsvc "github.com/secmun/podium/services/logger"
)

func TestMain(m *testing.M) {
	conf = newTestConfig()

	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags), conf)
	logger.Enable(false)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	member.InitValidators(validate, translator)

	member.InitTokenGenerator(conf)
	core.ParseEmailTemplates(conf, logger)

	os.Exit(m.Run())
}
