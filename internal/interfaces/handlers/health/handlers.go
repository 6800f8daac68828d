package health

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Handler struct {
	DB  *gorm.DB
	Rdb *redis.Client
}

func NewHandler(db *gorm.DB, rdb *redis.Client) *Handler {
	return &Handler{DB: db, Rdb: rdb}
}

// Check reports liveness of the process and its backing stores.
func (h *Handler) Check(c *fiber.Ctx) error {
	status := fiber.Map{"status": "ok"}

	sqlDB, err := h.DB.DB()
	if err != nil || sqlDB.PingContext(c.Context()) != nil {
		status["status"] = "degraded"
		status["database"] = "down"
	} else {
		status["database"] = "up"
	}

	if h.Rdb != nil {
		if err := h.Rdb.Ping(c.Context()).Err(); err != nil {
			status["redis"] = "down"
		} else {
			status["redis"] = "up"
		}
	}

	code := fiber.StatusOK
	if status["status"] != "ok" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(status)
}
