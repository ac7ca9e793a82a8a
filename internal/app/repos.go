package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/coursecommerce-backend/internal/data/repos"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
)

type Repos struct {
	User          repos.UserRepo
	UserSettings  repos.UserSettingsRepo
	PasswordReset repos.PasswordResetTokenRepo

	Course  repos.CourseRepo
	Content repos.ContentRepo

	Payment          repos.PaymentRepo
	Enrollment       repos.EnrollmentRepo
	Subscription     repos.SubscriptionRepo
	SubscriptionPlan repos.SubscriptionPlanRepo

	CourseProgress repos.CourseProgressRepo
	LessonProgress repos.LessonProgressRepo

	UserStat        repos.UserStatRepo
	Achievement     repos.AchievementRepo
	UserAchievement repos.UserAchievementRepo

	Notification repos.NotificationRepo
	Outbox       repos.OutboxRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:          repos.NewUserRepo(db, log),
		UserSettings:  repos.NewUserSettingsRepo(db, log),
		PasswordReset: repos.NewPasswordResetTokenRepo(db, log),

		Course:  repos.NewCourseRepo(db, log),
		Content: repos.NewContentRepo(db, log),

		Payment:          repos.NewPaymentRepo(db, log),
		Enrollment:       repos.NewEnrollmentRepo(db, log),
		Subscription:     repos.NewSubscriptionRepo(db, log),
		SubscriptionPlan: repos.NewSubscriptionPlanRepo(db, log),

		CourseProgress: repos.NewCourseProgressRepo(db, log),
		LessonProgress: repos.NewLessonProgressRepo(db, log),

		UserStat:        repos.NewUserStatRepo(db, log),
		Achievement:     repos.NewAchievementRepo(db, log),
		UserAchievement: repos.NewUserAchievementRepo(db, log),

		Notification: repos.NewNotificationRepo(db, log),
		Outbox:       repos.NewOutboxRepo(db, log),
	}
}
