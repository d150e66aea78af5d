package binder

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CUL-DigitalServices/grasshopper-ui/internal/notify"
)

func TestSerializeFormCheckboxes(t *testing.T) {
	// a is checked, b is not: browsers only submit a
	values := url.Values{
		"a":             {"on"},
		CheckboxesField: {"a", "b"},
	}

	assert.Equal(t, Record{"a": true, "b": false}, SerializeForm(values))
}

func TestSerializeFormMixedFields(t *testing.T) {
	values := url.Values{
		"app":           {"4"},
		"academicYear":  {"2014", "ignored"},
		"enableLocal":   {"true"},
		CheckboxesField: {"enableLocal,enableShibboleth"},
	}

	record := SerializeForm(values)
	assert.Equal(t, Record{
		"app":              "4",
		"academicYear":     "2014",
		"enableLocal":      true,
		"enableShibboleth": false,
	}, record)

	id, err := record.Int("app")
	require.NoError(t, err)
	assert.Equal(t, 4, id)
	assert.True(t, record.Bool("enableLocal"))
	assert.Equal(t, Record{"academicYear": "2014", "enableLocal": true, "enableShibboleth": false}, record.Without("app"))

	_, err = record.Int("academicYearX")
	assert.Error(t, err)
}

func TestRegistryDispatch(t *testing.T) {
	r := NewRegistry(nil)
	var got Record
	r.On(Submit, "#gh-configuration-form", func(ctx context.Context, in Input) error {
		got = in.Record
		return nil
	})

	assert.Contains(t, r.Bindings(), Binding{Event: Submit, Selector: "#gh-configuration-form"})
	require.NoError(t, r.Dispatch(context.Background(), Submit, "#gh-configuration-form", url.Values{"x": {"1"}}, nil))
	assert.Equal(t, Record{"x": "1"}, got)

	err := r.Dispatch(context.Background(), Click, "#gh-configuration-form", nil, nil)
	assert.True(t, errors.Is(err, ErrUnbound))

	r.On(Click, ".gh-hide-video", func(ctx context.Context, in Input) error { return nil })
	assert.Equal(t, []Binding{
		{Event: Click, Selector: ".gh-hide-video"},
		{Event: Submit, Selector: "#gh-configuration-form"},
	}, r.Bindings())
}

func TestSubmitSuccess(t *testing.T) {
	q := notify.NewQueue()
	var order []string

	action := SubmitForm{
		Call: func(ctx context.Context, record Record) error {
			order = append(order, "call:"+record.String("displayName"))
			return nil
		},
		Refresh: func(ctx context.Context) error {
			order = append(order, "refresh")
			return nil
		},
		Success: Message{Title: "Tenant created", Body: "The tenant was successfully created"},
		Failure: Message{Title: "Could not create tenant"},
	}.Action()

	err := action(context.Background(), Input{Record: Record{"displayName": "CUL"}, Notifier: q})
	require.NoError(t, err)

	assert.Equal(t, []string{"call:CUL", "refresh"}, order)
	notifications := q.Drain()
	require.Len(t, notifications, 1)
	assert.Equal(t, notify.Success, notifications[0].Type)
	assert.Equal(t, "Tenant created", notifications[0].Title)
}

func TestSubmitFailureMakesNoFurtherChange(t *testing.T) {
	q := notify.NewQueue()
	refreshed := false
	boom := errors.New("boom")

	action := SubmitForm{
		Call:    func(ctx context.Context, record Record) error { return boom },
		Refresh: func(ctx context.Context) error { refreshed = true; return nil },
		Success: Message{Title: "Saved"},
		Failure: Message{Title: "Could not save"},
	}.Action()

	err := action(context.Background(), Input{Record: Record{}, Notifier: q})
	assert.Equal(t, boom, err)
	assert.False(t, refreshed)

	notifications := q.Drain()
	require.Len(t, notifications, 1)
	assert.Equal(t, notify.Error, notifications[0].Type)
	assert.Equal(t, notify.DefaultErrorMessage, notifications[0].Message)
}
