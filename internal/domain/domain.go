package domain

import (
	"github.com/yungbote/coursecommerce-backend/internal/domain/achievements"
	"github.com/yungbote/coursecommerce-backend/internal/domain/auth"
	"github.com/yungbote/coursecommerce-backend/internal/domain/catalog"
	"github.com/yungbote/coursecommerce-backend/internal/domain/commerce"
	"github.com/yungbote/coursecommerce-backend/internal/domain/notify"
	"github.com/yungbote/coursecommerce-backend/internal/domain/progress"
	"github.com/yungbote/coursecommerce-backend/internal/domain/user"
)

type User = user.User
type UserSettings = user.UserSettings
type Role = user.Role

const (
	RoleUser  = user.RoleUser
	RoleAdmin = user.RoleAdmin
)

type Course = catalog.Course
type Module = catalog.Module
type Lesson = catalog.Lesson
type Video = catalog.Video
type ContentUnit = catalog.ContentUnit

type Payment = commerce.Payment
type PaymentStatus = commerce.PaymentStatus
type Enrollment = commerce.Enrollment
type Subscription = commerce.Subscription
type SubscriptionStatus = commerce.SubscriptionStatus
type SubscriptionPlan = commerce.SubscriptionPlan

type CourseProgress = progress.CourseProgress
type UserLessonProgress = progress.UserLessonProgress

type UserStat = achievements.UserStat
type UserStatEvent = achievements.UserStatEvent
type Achievement = achievements.Achievement
type UserAchievement = achievements.UserAchievement
type Standing = achievements.Standing

type Notification = notify.Notification
type OutboxEvent = notify.OutboxEvent

type PasswordResetToken = auth.PasswordResetToken

const (
	PaymentPending   = commerce.PaymentPending
	PaymentCompleted = commerce.PaymentCompleted
	PaymentFailed    = commerce.PaymentFailed

	SubscriptionActive   = commerce.SubscriptionActive
	SubscriptionExpired  = commerce.SubscriptionExpired
	SubscriptionCanceled = commerce.SubscriptionCanceled
)

// Models lists every persisted entity in migration order.
func Models() []any {
	return []any{
		&User{},
		&UserSettings{},
		&Course{},
		&Module{},
		&Lesson{},
		&Video{},
		&SubscriptionPlan{},
		&Payment{},
		&Enrollment{},
		&Subscription{},
		&CourseProgress{},
		&UserLessonProgress{},
		&UserStat{},
		&UserStatEvent{},
		&Achievement{},
		&UserAchievement{},
		&Notification{},
		&OutboxEvent{},
		&PasswordResetToken{},
	}
}
