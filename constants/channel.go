package constants

import "fmt"

// Channel is one of the input streams that feed a unified document.
type Channel string

const (
	ChannelDoctor      Channel = "Doctor"
	ChannelDocument    Channel = "Document"
	ChannelAudio       Channel = "Audio"
	ChannelAttachments Channel = "Attachments"
)

// Label renders the section header for an item of this channel.
// Doctor text has no id; the other channels append it.
func (c Channel) Label(id string) string {
	if id == "" {
		return string(c)
	}
	return fmt.Sprintf("%s %s", c, id)
}
