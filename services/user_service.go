// services/user_service.go
package services

import (
	"errors"
	"log"

	"ad-marketplace-system/models"
	"ad-marketplace-system/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// GetAllUsers is the admin listing with search and pagination.
func (s *UserService) GetAllUsers(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := s.DB.Model(&models.User{})
	if search := c.Query("search"); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("email ILIKE ? OR username ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to count users", err))
	}

	var users []models.User
	if err := query.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&users).Error; err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to fetch users", err))
	}

	return utils.OK(c, "users fetched", fiber.Map{
		"users": users,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// PromoteUser elevates a user to admin.
func (s *UserService) PromoteUser(c *fiber.Ctx) error {
	var user models.User
	if err := s.DB.First(&user, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.FailCode(c, utils.CodeUserNotFound, "user not found")
		}
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to fetch user", err))
	}
	if user.Role == models.RoleAdmin {
		return utils.FailCode(c, utils.CodeValidationError, "user is already an admin")
	}

	if err := s.DB.Model(&user).Update("role", models.RoleAdmin).Error; err != nil {
		log.Printf("[Users] promote failed for %s: %v", user.ID, err)
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to promote user", err))
	}
	return utils.OK(c, "user promoted", user)
}

// DeleteUser removes a user and their ads (with events); no refunds are paid
// on admin deletion.
func (s *UserService) DeleteUser(c *fiber.Ctx) error {
	callerID := c.Locals("user_id").(string)
	targetID := c.Params("id")

	if callerID == targetID {
		return utils.FailCode(c, utils.CodeValidationError, "cannot delete your own account")
	}

	var user models.User
	if err := s.DB.First(&user, "id = ?", targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.FailCode(c, utils.CodeUserNotFound, "user not found")
		}
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to fetch user", err))
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var adIDs []string
		if err := tx.Model(&models.Ad{}).Where("user_id = ?", targetID).Pluck("id", &adIDs).Error; err != nil {
			return err
		}
		if len(adIDs) > 0 {
			if err := tx.Where("ad_id IN ?", adIDs).Delete(&models.ImpressionEvent{}).Error; err != nil {
				return err
			}
			if err := tx.Where("ad_id IN ?", adIDs).Delete(&models.ClickEvent{}).Error; err != nil {
				return err
			}
			if err := tx.Where("user_id = ?", targetID).Delete(&models.Ad{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		log.Printf("[Users] delete failed for %s: %v", targetID, err)
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to delete user", err))
	}

	return utils.OK(c, "user deleted", fiber.Map{"id": targetID})
}
