package event

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBus_DispatchesInSubscriptionOrder(t *testing.T) {
	bus := NewBus()
	var order []int
	bus.SubscribeFunc(MemberCheckedIn, func(Event) { order = append(order, 1) })
	bus.SubscribeFunc(MemberCheckedIn, func(Event) { order = append(order, 2) })

	bus.Publish(MemberCheckedIn, New(MemberCheckedIn, nil))
	assert.Equal(t, []int{1, 2}, order)
}

func TestBus_PayloadReachesSubscriber(t *testing.T) {
	bus := NewBus()
	memberID := uuid.New()
	var got CheckinData
	bus.SubscribeFunc(MemberCheckedIn, func(evt Event) {
		got = evt.Data.(CheckinData)
	})

	bus.Publish(MemberCheckedIn, New(MemberCheckedIn, CheckinData{MemberID: memberID, Direction: "in"}))
	assert.Equal(t, memberID, got.MemberID)
	assert.Equal(t, "in", got.Direction)
}

func TestBus_NoSubscribersIsNoop(t *testing.T) {
	bus := NewBus()
	bus.Publish(Type("unknown.event"), New(Type("unknown.event"), nil))
}

func TestBus_OtherTypesNotDelivered(t *testing.T) {
	bus := NewBus()
	called := false
	bus.SubscribeFunc(Type("other.event"), func(Event) { called = true })

	bus.Publish(MemberCheckedIn, New(MemberCheckedIn, nil))
	assert.False(t, called)
}
