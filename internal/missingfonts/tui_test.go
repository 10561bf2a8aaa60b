package missingfonts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitEvents(t *testing.T, sink *eventLog, n int) []Event {
	t.Helper()
	require.Eventually(t, func() bool { return len(sink.All()) >= n }, time.Second, 5*time.Millisecond)
	return sink.All()
}

func TestTUIAlertDetailsPostsClick(t *testing.T) {
	sink := &eventLog{}
	tw := NewTUIWindows(sink)

	w, err := tw.ShowAlert(alertTitle, alertBody)
	require.NoError(t, err)
	w.(*tuiWindow).done(0, "Details")

	assert.Equal(t, []Event{AlertClicked{}}, waitEvents(t, sink, 1))

	// the dispatcher closes the alert after the click; nothing more is posted
	w.Close()
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, sink.All(), 1)
}

func TestTUIAlertDismissPostsClosed(t *testing.T) {
	sink := &eventLog{}
	tw := NewTUIWindows(sink)

	w, err := tw.ShowAlert(alertTitle, alertBody)
	require.NoError(t, err)
	w.(*tuiWindow).done(1, "Dismiss")

	assert.Equal(t, []Event{AlertClosed{Window: w}}, waitEvents(t, sink, 1))
}

func TestTUIDialogButtons(t *testing.T) {
	for index, want := range []Choice{ChoiceAccept, ChoiceAlwaysIgnore, ChoiceCancel} {
		sink := &eventLog{}
		tw := NewTUIWindows(sink)

		dlg, err := tw.ShowDialog([]string{"Greek"})
		require.NoError(t, err)
		dlg.(*tuiWindow).done(index, "")

		assert.Equal(t, []Event{DialogFinished{Choice: want}}, waitEvents(t, sink, 1), want.String())
	}
}

func TestTUIDialogEscapePostsClosed(t *testing.T) {
	sink := &eventLog{}
	tw := NewTUIWindows(sink)

	dlg, err := tw.ShowDialog([]string{"Greek"})
	require.NoError(t, err)
	dlg.(*tuiWindow).done(-1, "")

	assert.Equal(t, []Event{DialogClosed{Window: dlg}}, waitEvents(t, sink, 1))
}

func TestTUICloseIsIdempotent(t *testing.T) {
	sink := &eventLog{}
	tw := NewTUIWindows(sink)

	w, err := tw.ShowAlert(alertTitle, alertBody)
	require.NoError(t, err)
	w.Close()
	w.Close()
	tw.CloseAll(KindAlert)

	assert.Equal(t, []Event{AlertClosed{Window: w}}, waitEvents(t, sink, 1))
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, sink.All(), 1)

	// a button pressed on a window that is already gone does nothing
	w.(*tuiWindow).done(0, "Details")
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, sink.All(), 1)
}

func TestTUIStoppedRefusesWindows(t *testing.T) {
	tw := NewTUIWindows(&eventLog{})
	tw.stopped.Store(true)

	_, err := tw.ShowAlert(alertTitle, alertBody)
	assert.Error(t, err)
	_, err = tw.ShowDialog(nil)
	assert.Error(t, err)
}
