package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"go-hrms/internal/events"
	"go-hrms/internal/leave"
)

const BalanceProjectionKeyPrefix = "leave:balance:"

// Dashboard projection, refreshed on every lifecycle event. The authoritative
// balance is always recomputed from the database.
const balanceProjectionTTL = 24 * time.Hour

func GetBalanceProjectionKey(employeeID string) string {
	return BalanceProjectionKeyPrefix + employeeID
}

func ConsumeLeaveLifecycle(
	ctx context.Context,
	reader *kafkago.Reader,
	leaveService leave.Service,
	rdb *redis.Client,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.leave_lifecycle")
	log.Info("leave lifecycle consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("leave lifecycle consumer stopped")
				return
			}
			log.Error("fetch leave lifecycle message failed", zap.Error(err))
			continue
		}

		var event events.LeaveLifecycleEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Error("decode leave lifecycle event failed", zap.Error(err))
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		year := event.OccurredAt.UTC().Year()
		if start, perr := time.Parse("2006-01-02", event.StartDate); perr == nil {
			year = start.Year()
		}

		balance, err := leaveService.GetBalance(ctx, event.EmployeeID, year)
		if err != nil {
			log.Error("refresh leave balance projection failed",
				zap.String("employee_id", event.EmployeeID),
				zap.String("event_type", event.EventType),
				zap.Error(err),
			)
			continue
		}

		payload, err := json.Marshal(balance)
		if err != nil {
			log.Error("encode leave balance projection failed", zap.Error(err))
			continue
		}
		if err := rdb.Set(ctx, GetBalanceProjectionKey(event.EmployeeID), payload, balanceProjectionTTL).Err(); err != nil {
			log.Error("store leave balance projection failed",
				zap.String("employee_id", event.EmployeeID),
				zap.Error(err),
			)
			continue
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit leave lifecycle message failed", zap.Error(err))
			continue
		}

		log.Info("leave balance projection refreshed",
			zap.String("employee_id", event.EmployeeID),
			zap.String("event_type", event.EventType),
			zap.Int("year", year),
		)
	}
}
