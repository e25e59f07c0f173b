package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/coursehub-backend/internal/model"
)

func TestDecodeTriggerPayloads(t *testing.T) {
	insert := `{"type":"INSERT","id":7,"record":{"id":7,"title":"Linux Admin","description":"","price":8500.5,"duration":"Medium","branch":"Pasay","technology":"Linux","program":"Short Courses","image_url":null,"link":"https://example.com/linux","created_at":"2025-03-01T08:00:00.123456+00:00","updated_at":"2025-03-01T08:00:00.123456+00:00"}}`

	ev, id, err := Decode([]byte(insert))
	require.NoError(t, err)
	assert.Equal(t, model.ChangeInsert, ev.Type)
	assert.Equal(t, 7, id)
	require.NotNil(t, ev.Record)
	assert.Equal(t, "Linux Admin", ev.Record.Title)
	assert.Equal(t, 8500.5, ev.Record.Price)
	assert.Nil(t, ev.Record.ImageURL)
	require.NotNil(t, ev.Record.Link)
	assert.Equal(t, 2025, ev.Record.CreatedAt.Year())

	ev, id, err = Decode([]byte(`{"type":"DELETE","old_id":42}`))
	require.NoError(t, err)
	assert.Equal(t, model.ChangeDelete, ev.Type)
	assert.Equal(t, 42, id)
	assert.Equal(t, 42, ev.TargetID())
}

func TestDecodeOversizedUpdateHasNoRecord(t *testing.T) {
	ev, id, err := Decode([]byte(`{"type":"UPDATE","id":9,"old_id":9}`))
	require.NoError(t, err)
	assert.Nil(t, ev.Record)
	assert.Equal(t, 9, id)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	payloads := []string{
		`not json`,
		`{"type":"TRUNCATE"}`,
		`{"type":"DELETE"}`,
		`{"type":"INSERT"}`,
	}
	for _, p := range payloads {
		_, _, err := Decode([]byte(p))
		assert.ErrorIs(t, err, ErrMalformed, p)
	}
}

func TestEncodeDecodeKeepsIdentity(t *testing.T) {
	link := "https://example.com"
	ev := model.ChangeEvent{
		Type:   model.ChangeUpdate,
		Record: &model.Course{ID: 3, Title: "CAD", Price: 12000, Duration: model.DurationLong, Link: &link},
		OldID:  3,
	}
	payload, err := Encode(ev)
	require.NoError(t, err)

	got, id, err := Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, 3, id)
	assert.Equal(t, ev.Record.Title, got.Record.Title)
	assert.Equal(t, link, *got.Record.Link)
}

func TestCompleteResolvesMissingRecord(t *testing.T) {
	ctx := context.Background()
	resolve := func(_ context.Context, id int) (*model.Course, error) {
		switch id {
		case 1:
			return &model.Course{ID: 1, Title: "Loaded"}, nil
		case 2:
			return nil, nil
		default:
			return nil, errors.New("db down")
		}
	}

	ev, ok, err := complete(ctx, model.ChangeEvent{Type: model.ChangeUpdate}, 1, resolve)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Loaded", ev.Record.Title)

	_, ok, err = complete(ctx, model.ChangeEvent{Type: model.ChangeInsert}, 2, resolve)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = complete(ctx, model.ChangeEvent{Type: model.ChangeInsert}, 3, resolve)
	assert.Error(t, err)

	_, ok, err = complete(ctx, model.ChangeEvent{Type: model.ChangeDelete, OldID: 5}, 5, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSubscriptionDeliversInOrderAndUnsubscribes(t *testing.T) {
	released := make(chan struct{})
	sub := NewSubscription(context.Background(), 0, func(ctx context.Context, emit Emit) {
		defer close(released)
		for i := 1; ; i++ {
			if !emit(model.ChangeEvent{Type: model.ChangeDelete, OldID: i}) {
				return
			}
		}
	})

	for want := 1; want <= 3; want++ {
		ev := <-sub.Events()
		assert.Equal(t, want, ev.OldID)
	}

	sub.Unsubscribe()
	sub.Unsubscribe()

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("producer did not stop after Unsubscribe")
	}
	for range sub.Events() {
	}
	_, open := <-sub.Events()
	assert.False(t, open)
}

func TestSubscriptionClosesWhenProducerExits(t *testing.T) {
	sub := NewSubscription(context.Background(), 1, func(ctx context.Context, emit Emit) {
		emit(model.ChangeEvent{Type: model.ChangeDelete, OldID: 1})
	})

	ev, ok := <-sub.Events()
	require.True(t, ok)
	assert.Equal(t, 1, ev.OldID)

	_, ok = <-sub.Events()
	assert.False(t, ok)
	<-sub.Done()
}
