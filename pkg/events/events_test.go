package events

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/trackprogress/pkg/model"
)

func TestTee(t *testing.T) {
	r1, r2 := NewRecorder(), NewRecorder()
	s := Tee(r1, Discard, r2)
	lap := model.LapCompleted{EventHeader: model.EventHeader{KartID: "a", Clock: 3}, Lap: 1}
	ww := model.WrongWay{EventHeader: model.EventHeader{KartID: "b", Clock: 4}, On: true}
	s.Publish(lap)
	s.Publish(ww)

	assert.Equal(t, []model.Event{lap, ww}, r1.Events())
	assert.Equal(t, r1.Events(), r2.Events())
	assert.Equal(t, []model.Event{ww}, r1.OfKind(model.EKWrongWay))

	r1.Clear()
	assert.Empty(t, r1.Events())
}

func TestChannel(t *testing.T) {
	c := NewChannel(2)
	ev := model.ForcedRescue{EventHeader: model.EventHeader{KartID: "a"}}
	c.Publish(ev)
	c.Close()

	got := make([]model.Event, 0)
	for e := range c.C() {
		got = append(got, e)
	}
	assert.Equal(t, []model.Event{ev}, got)
}
