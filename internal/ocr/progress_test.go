package ocr

import "testing"

func TestProgressStreamDeliversEvents(t *testing.T) {
	stream := NewProgressStream(4)
	fn := stream.Func()

	fn(1, 10, 10)
	fn(5, 10, 50)
	stream.Close()

	var events []Progress
	for event := range stream.Events() {
		events = append(events, event)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[1].Percent != 50 {
		t.Fatalf("last event = %+v", events[1])
	}
}

func TestProgressStreamDropsWhenFull(t *testing.T) {
	stream := NewProgressStream(1)
	fn := stream.Func()

	fn(1, 3, 33)
	fn(2, 3, 66) // buffer full, dropped
	stream.Close()

	var events []Progress
	for event := range stream.Events() {
		events = append(events, event)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].Frame != 1 {
		t.Fatalf("kept event = %+v", events[0])
	}
}
