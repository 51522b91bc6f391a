package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ent0n29/imagechat/internal/agentapi"
)

func TestExtractReply(t *testing.T) {
	userEvent := agentapi.Event{Content: &agentapi.Content{Role: agentapi.RoleUser, Parts: []agentapi.Part{{Text: "echo"}}}}
	emptyModel := agentapi.Event{Content: &agentapi.Content{Role: agentapi.RoleModel}}
	inlineFirst := agentapi.Event{Content: &agentapi.Content{Role: agentapi.RoleModel, Parts: []agentapi.Part{
		{InlineData: &agentapi.InlineData{Data: "AA==", MimeType: "image/png"}},
		{Text: "caption"},
	}}}

	cases := []struct {
		name   string
		events []agentapi.Event
		want   string
		ok     bool
	}{
		{"single model event", []agentapi.Event{modelEvent("hello")}, "hello", true},
		{"empty list", []agentapi.Event{}, "", false},
		{"nil list", nil, "", false},
		{"no content", []agentapi.Event{{Author: "image_agent"}}, "", false},
		{"skips user role", []agentapi.Event{userEvent, modelEvent("reply")}, "reply", true},
		{"skips model without parts", []agentapi.Event{emptyModel, modelEvent("reply")}, "reply", true},
		{"first match wins", []agentapi.Event{modelEvent("first"), modelEvent("second")}, "first", true},
		{"first match without text", []agentapi.Event{inlineFirst, modelEvent("later")}, "", false},
		{"empty text", []agentapi.Event{modelEvent("")}, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractReply(tc.events)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.ok, ok)
		})
	}
}

func TestDetectImage(t *testing.T) {
	mimeType, name, err := DetectImage(jpegBytes)
	assert.NoError(t, err)
	assert.Equal(t, "image/jpeg", mimeType)
	assert.Equal(t, "uploaded.jpg", name)

	_, _, err = DetectImage(gifBytes)
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	assert.Equal(t, []string{"image/jpeg", "image/png"}, AcceptedImageTypes())
}
