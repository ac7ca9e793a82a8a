package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/coursecommerce-backend/internal/data/repos/achievements"
	"github.com/yungbote/coursecommerce-backend/internal/data/repos/auth"
	"github.com/yungbote/coursecommerce-backend/internal/data/repos/catalog"
	"github.com/yungbote/coursecommerce-backend/internal/data/repos/commerce"
	"github.com/yungbote/coursecommerce-backend/internal/data/repos/notify"
	"github.com/yungbote/coursecommerce-backend/internal/data/repos/progress"
	"github.com/yungbote/coursecommerce-backend/internal/data/repos/user"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type UserSettingsRepo = user.UserSettingsRepo
type PasswordResetTokenRepo = auth.PasswordResetTokenRepo

type CourseRepo = catalog.CourseRepo
type ContentRepo = catalog.ContentRepo
type LessonRef = catalog.LessonRef

type PaymentRepo = commerce.PaymentRepo
type EnrollmentRepo = commerce.EnrollmentRepo
type SubscriptionRepo = commerce.SubscriptionRepo
type SubscriptionPlanRepo = commerce.SubscriptionPlanRepo

type CourseProgressRepo = progress.CourseProgressRepo
type LessonProgressRepo = progress.LessonProgressRepo

type UserStatRepo = achievements.UserStatRepo
type AchievementRepo = achievements.AchievementRepo
type UserAchievementRepo = achievements.UserAchievementRepo

type NotificationRepo = notify.NotificationRepo
type OutboxRepo = notify.OutboxRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }
func NewUserSettingsRepo(db *gorm.DB, baseLog *logger.Logger) UserSettingsRepo {
	return user.NewUserSettingsRepo(db, baseLog)
}
func NewPasswordResetTokenRepo(db *gorm.DB, baseLog *logger.Logger) PasswordResetTokenRepo {
	return auth.NewPasswordResetTokenRepo(db, baseLog)
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return catalog.NewCourseRepo(db, baseLog)
}
func NewContentRepo(db *gorm.DB, baseLog *logger.Logger) ContentRepo {
	return catalog.NewContentRepo(db, baseLog)
}

func NewPaymentRepo(db *gorm.DB, baseLog *logger.Logger) PaymentRepo {
	return commerce.NewPaymentRepo(db, baseLog)
}
func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
	return commerce.NewEnrollmentRepo(db, baseLog)
}
func NewSubscriptionRepo(db *gorm.DB, baseLog *logger.Logger) SubscriptionRepo {
	return commerce.NewSubscriptionRepo(db, baseLog)
}
func NewSubscriptionPlanRepo(db *gorm.DB, baseLog *logger.Logger) SubscriptionPlanRepo {
	return commerce.NewSubscriptionPlanRepo(db, baseLog)
}

func NewCourseProgressRepo(db *gorm.DB, baseLog *logger.Logger) CourseProgressRepo {
	return progress.NewCourseProgressRepo(db, baseLog)
}
func NewLessonProgressRepo(db *gorm.DB, baseLog *logger.Logger) LessonProgressRepo {
	return progress.NewLessonProgressRepo(db, baseLog)
}

func NewUserStatRepo(db *gorm.DB, baseLog *logger.Logger) UserStatRepo {
	return achievements.NewUserStatRepo(db, baseLog)
}
func NewAchievementRepo(db *gorm.DB, baseLog *logger.Logger) AchievementRepo {
	return achievements.NewAchievementRepo(db, baseLog)
}
func NewUserAchievementRepo(db *gorm.DB, baseLog *logger.Logger) UserAchievementRepo {
	return achievements.NewUserAchievementRepo(db, baseLog)
}

func NewNotificationRepo(db *gorm.DB, baseLog *logger.Logger) NotificationRepo {
	return notify.NewNotificationRepo(db, baseLog)
}
func NewOutboxRepo(db *gorm.DB, baseLog *logger.Logger) OutboxRepo {
	return notify.NewOutboxRepo(db, baseLog)
}
