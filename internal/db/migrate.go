package db

import (
	"github.com/suPer8Hu/codesensei/internal/chat"
	"github.com/suPer8Hu/codesensei/internal/growth"
	"github.com/suPer8Hu/codesensei/internal/interview"
	"github.com/suPer8Hu/codesensei/internal/nav"
	"github.com/suPer8Hu/codesensei/internal/persona"
	"github.com/suPer8Hu/codesensei/internal/plan"
	"github.com/suPer8Hu/codesensei/internal/settings"
	"github.com/suPer8Hu/codesensei/internal/user"
	"gorm.io/gorm"
)

// Models lists every table owned by the application.
func Models() []any {
	return []any{
		&user.User{},
		&settings.UserSettings{},
		&chat.Session{},
		&chat.Message{},
		&chat.Job{},
		&persona.Persona{},
		&plan.Plan{},
		&interview.Question{},
		&interview.MistakeRecord{},
		&nav.Item{},
		&growth.Achievement{},
		&growth.FocusDay{},
	}
}

func AutoMigrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(Models()...)
}
