package bootstrap

import (
	"github.com/heartline-cc/HeartLine/internal/models"
	"gorm.io/gorm"
)

type SeedService struct {
	db *gorm.DB
}

func (s *SeedService) SeedAll() error {
	if err := s.seedCounselors(); err != nil {
		return err
	}
	return s.seedTeachers()
}

func (s *SeedService) seedCounselors() error {
	defaults := []models.Caller{
		{
			Phone:  "+15550100001",
			Name:   "Dana Reyes",
			Role:   models.CallerRoleCounselor,
			Status: models.CounselorAvailable,
		},
		{
			Phone:  "+15550100002",
			Name:   "Sam Okafor",
			Role:   models.CallerRoleCounselor,
			Status: models.CounselorAvailable,
		},
	}

	for _, counselor := range defaults {
		var count int64
		err := s.db.Model(&models.Caller{}).Where("phone = ?", counselor.Phone).Count(&count).Error
		if err != nil {
			return err
		}
		if count == 0 {
			if err := s.db.Create(&counselor).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *SeedService) seedTeachers() error {
	teacher := models.Caller{
		Phone: "+15550100010",
		Name:  "Ms. Vega",
		Role:  models.CallerRoleTeacher,
	}

	var count int64
	err := s.db.Model(&models.Caller{}).Where("phone = ?", teacher.Phone).Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return s.db.Create(&teacher).Error
	}
	return nil
}
