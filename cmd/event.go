package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/keswickschool/budget-dashboard/internal/core/events"
	"github.com/keswickschool/budget-dashboard/pkg/logger"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event bus debugging commands",
	Long:  `Publish test events through the in-process bus to verify handler wiring`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a test event",
	Long:  `Publish a test event to the event bus for testing and debugging`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		publishTestEvent(args[0])
	},
}

func publishTestEvent(eventType string) {
	log := logger.LoggerWrapper()

	eventBus := events.NewEventBus(log)
	eventBus.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
		log.Info("test handler received event",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"payload", event.Payload())
		return nil
	})

	var event events.BaseEvent
	switch eventType {
	case events.EventEnrollmentUpdated:
		event = events.NewEnrollmentUpdatedEvent([]string{"K", "1", "2"})
	case events.EventAccessResolved:
		event = events.NewAccessResolvedEvent("test@keswick.org", "principal", "granted")
	default:
		fmt.Printf("unknown event type %q; known types: %s, %s\n",
			eventType, events.EventEnrollmentUpdated, events.EventAccessResolved)
		return
	}

	if err := eventBus.PublishSync(context.Background(), event); err != nil {
		log.Error("test event failed", "error", err)
		return
	}

	// async handlers log on their own goroutines
	time.Sleep(100 * time.Millisecond)
	fmt.Println("test event published:", eventType)
}

func init() {
	eventCmd.AddCommand(publishEventCmd)
}
