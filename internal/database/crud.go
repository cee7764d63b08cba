package database

import (
	"errors"

	"github.com/cptrack/cptrack/internal/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// User CRUD
func CreateUser(db *gorm.DB, user *models.User) error {
	return db.Create(user).Error
}

func GetUserByID(db *gorm.DB, id string) (*models.User, error) {
	var user models.User
	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func GetUserByUsername(db *gorm.DB, username string) (*models.User, error) {
	var user models.User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func GetUserByOIDCSubject(db *gorm.DB, subject string) (*models.User, error) {
	var user models.User
	if err := db.Where("oidc_subject = ?", subject).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func UpdateUser(db *gorm.DB, user *models.User) error {
	return db.Save(user).Error
}

func DeleteUser(db *gorm.DB, userID string) error {
	return db.Delete(&models.User{}, "id = ?", userID).Error
}

// PlatformProfile CRUD

// UpsertPlatformProfile creates the profile row on first link and overwrites
// handle, ratings and synced_at on every re-sync.
func UpsertPlatformProfile(db *gorm.DB, profile *models.PlatformProfile) error {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "platform"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"handle", "current_rating", "max_rating", "rank", "synced_at", "updated_at",
		}),
	}).Create(profile).Error
}

func GetPlatformProfile(db *gorm.DB, userID string, platform models.Platform) (*models.PlatformProfile, error) {
	var profile models.PlatformProfile
	if err := db.Where("user_id = ? AND platform = ?", userID, platform).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func GetPlatformProfiles(db *gorm.DB, userID string) ([]models.PlatformProfile, error) {
	var profiles []models.PlatformProfile
	if err := db.Where("user_id = ?", userID).Order("platform asc").Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// Problem CRUD

// UpsertProblem inserts the problem or refreshes its mutable metadata when a
// row with the same (platform, external_id) already exists. On return p.ID is
// always the persisted row's primary key.
func UpsertProblem(db *gorm.DB, p *models.Problem) error {
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "platform"}, {Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "difficulty", "rating", "tags", "updated_at",
		}),
	}).Create(p).Error
	if err != nil {
		return err
	}

	if p.ID == 0 {
		var existing struct{ ID uint }
		if err := db.Model(&models.Problem{}).
			Select("id").
			Where("platform = ? AND external_id = ?", p.Platform, p.ExternalID).
			First(&existing).Error; err != nil {
			return err
		}
		p.ID = existing.ID
	}
	return nil
}

func GetProblemByExternalID(db *gorm.DB, platform models.Platform, externalID string) (*models.Problem, error) {
	var problem models.Problem
	if err := db.Where("platform = ? AND external_id = ?", platform, externalID).First(&problem).Error; err != nil {
		return nil, err
	}
	return &problem, nil
}

// Submission CRUD

// CreateSubmissionIfAbsent makes history imports safe to retry: a logical
// submission is identified by (user, platform, problem, submitted_at) and is
// only inserted once. Returns whether a new row was created.
func CreateSubmissionIfAbsent(db *gorm.DB, sub *models.Submission) (bool, error) {
	var count int64
	err := db.Model(&models.Submission{}).
		Where("user_id = ? AND platform = ? AND problem_id = ? AND submitted_at = ?",
			sub.UserID, sub.Platform, sub.ProblemID, sub.SubmittedAt).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if err := db.Create(sub).Error; err != nil {
		return false, err
	}
	return true, nil
}

func GetSubmissionsByUser(db *gorm.DB, userID string) ([]models.Submission, error) {
	var subs []models.Submission
	if err := db.Preload("Problem").Where("user_id = ?", userID).Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func GetSubmissionsByUserAndPlatform(db *gorm.DB, userID string, platform models.Platform) ([]models.Submission, error) {
	var subs []models.Submission
	if err := db.Preload("Problem").
		Where("user_id = ? AND platform = ?", userID, platform).
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// ContestParticipation CRUD

func UpsertContestParticipation(db *gorm.DB, cp *models.ContestParticipation) error {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "platform"}, {Name: "contest_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"contest_name", "rank", "old_rating", "new_rating", "started_at", "updated_at",
		}),
	}).Create(cp).Error
}

func GetContestParticipations(db *gorm.DB, userID string) ([]models.ContestParticipation, error) {
	var rows []models.ContestParticipation
	if err := db.Where("user_id = ?", userID).Order("started_at asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ActivityCacheEntry CRUD

// ReplaceActivityCache swaps out every per-day row for (user, platform) in one
// transaction. Entries from a prior sync never survive, so partial historical
// imports cannot drift.
func ReplaceActivityCache(db *gorm.DB, userID string, platform models.Platform, entries []models.ActivityCacheEntry) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND platform = ?", userID, platform).
			Delete(&models.ActivityCacheEntry{}).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		for i := range entries {
			entries[i].ID = 0
			entries[i].UserID = userID
			entries[i].Platform = platform
		}
		return tx.CreateInBatches(entries, 200).Error
	})
}

func GetActivityEntries(db *gorm.DB, userID string, platform models.Platform) ([]models.ActivityCacheEntry, error) {
	var entries []models.ActivityCacheEntry
	if err := db.Where("user_id = ? AND platform = ?", userID, platform).
		Order("date asc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func GetAllActivityEntries(db *gorm.DB, userID string) ([]models.ActivityCacheEntry, error) {
	var entries []models.ActivityCacheEntry
	if err := db.Where("user_id = ?", userID).Order("date asc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// DeletePlatformData removes everything imported for (user, platform): the
// profile, submissions, contest rows and the activity projection. Used when a
// handle is unlinked.
func DeletePlatformData(db *gorm.DB, userID string, platform models.Platform) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND platform = ?", userID, platform).
			Delete(&models.Submission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ? AND platform = ?", userID, platform).
			Delete(&models.ContestParticipation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ? AND platform = ?", userID, platform).
			Delete(&models.ActivityCacheEntry{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ? AND platform = ?", userID, platform).
			Delete(&models.PlatformProfile{}).Error
	})
}

// IsNotFound reports whether err is gorm's record-not-found.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
