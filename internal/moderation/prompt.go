package moderation

import "fmt"

const promptTemplate = `You are a content moderator for a student note-sharing site. Notes may be written in English, Tagalog, or a mix of both.

Flag the note as harmful if it contains any of the following:
- encouragement of self-harm or suicide
- hate speech against a group or person
- threats or glorification of violence
- harassment or bullying of a person
- explicit or illegal material
- sexual language
- profanity or slurs, in English or Tagalog

Ordinary study material, even on sensitive academic topics, is not harmful.

Respond with JSON only, no other text, in exactly this shape:
{"isHarmful": true or false, "reason": "short explanation when harmful"}

Title: %s

Content:
%s`

// BuildPrompt renders the classification instruction for one note.
func BuildPrompt(title, content string) string {
	return fmt.Sprintf(promptTemplate, title, content)
}
