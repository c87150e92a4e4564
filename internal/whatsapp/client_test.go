package whatsapp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/wagateway/gateway-server-go/internal/model"
)

func TestTranslateEvent(t *testing.T) {
	t.Run("connected opens", func(t *testing.T) {
		evt, ok := translateEvent(&events.Connected{})
		assert.True(t, ok)
		assert.Equal(t, model.OpenedEvent{}, evt)
	})

	t.Run("pair success persists credentials", func(t *testing.T) {
		evt, ok := translateEvent(&events.PairSuccess{Platform: "android"})
		assert.True(t, ok)
		assert.Equal(t, model.CredentialsChangedEvent{}, evt)
	})

	t.Run("logout is flagged", func(t *testing.T) {
		evt, ok := translateEvent(&events.LoggedOut{Reason: events.ConnectFailureLoggedOut})
		assert.True(t, ok)
		closed := evt.(model.ClosedEvent)
		assert.True(t, closed.LoggedOut)
		assert.Contains(t, closed.Reason, "logged out")
	})

	t.Run("transient closes are not logouts", func(t *testing.T) {
		for _, raw := range []any{
			&events.Disconnected{},
			&events.StreamReplaced{},
			&events.ClientOutdated{},
		} {
			evt, ok := translateEvent(raw)
			assert.True(t, ok)
			assert.False(t, evt.(model.ClosedEvent).LoggedOut)
		}
	})

	t.Run("unrelated events are ignored", func(t *testing.T) {
		_, ok := translateEvent(&events.KeepAliveTimeout{ErrorCount: 1})
		assert.False(t, ok)

		_, ok = translateEvent(&events.Receipt{})
		assert.False(t, ok)
	})
}
