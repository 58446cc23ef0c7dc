package analysis

import (
	"fmt"
	"strings"
	"time"

	"livetrans/internal/domain"
)

// FileMode selects the one-shot audio file analysis flavor.
type FileMode string

const (
	FileModeTranscript FileMode = "transcript"
	FileModeSummary    FileMode = "summary"
)

func speakerLabel(speaker domain.Speaker) string {
	if speaker == domain.SpeakerModel {
		return "Translator"
	}
	return "Source"
}

// transcriptContext renders segments as timestamped lines for a prompt.
func transcriptContext(segments []domain.TranscriptSegment) string {
	lines := make([]string, 0, len(segments))
	for _, segment := range segments {
		if len(strings.TrimSpace(segment.Text)) <= 2 {
			continue
		}
		ts := time.UnixMilli(segment.TimestampMs).Format("15:04:05")
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", ts, speakerLabel(segment.Speaker), segment.Text))
	}
	return strings.Join(lines, "\n")
}

func checkinPrompt(segments []domain.TranscriptSegment, timeRange string, language string) string {
	return fmt.Sprintf(`You are an intelligent analyst assistant.
Analyze the recent transcript (Time: %s).

Provide a concise "Pulse Check" in %s.
Use the following format exactly:

# Current Topic
[One sentence summary]

# Key Insights
* [Insight 1]
* [Insight 2]

Recent Context:
%s`, timeRange, language, transcriptContext(segments))
}

func milestonePrompt(segments []domain.TranscriptSegment, timeRange string, language string) string {
	return fmt.Sprintf(`You are an expert academic summarizer.
Analyze the transcript so far (%s).

Create a "Stage Summary" in %s.

# Learning Path
[Brief paragraph on the flow of the session]

# Core Concepts
* **[Concept 1]**: [Explanation]
* **[Concept 2]**: [Explanation]
* **[Concept 3]**: [Explanation]

# Conclusion
[Brief conclusion]

Full Transcript:
%s`, timeRange, language, transcriptContext(segments))
}

func finalSummaryPrompt(segments []domain.TranscriptSegment, language string) string {
	return fmt.Sprintf(`Based on the following full transcript, please generate a comprehensive final study guide in %s.

Structure your response using Markdown strictly as follows:

# Executive Summary
[Provide a summary paragraph]

# Key Takeaways
* [Key point 1]
* [Key point 2]
* [Key point 3]
* [Key point 4]

# Terminology
* **[Term 1]**: [Definition]
* **[Term 2]**: [Definition]

# Action Items
* [Action 1]
* [Action 2]

Transcript:
%s`, language, transcriptContext(segments))
}

// FileAnalysisPrompt builds the instruction paired with an uploaded audio
// file in the one-shot analysis flow.
func FileAnalysisPrompt(mode FileMode, language string) string {
	if mode == FileModeTranscript {
		return fmt.Sprintf(`You are a professional transcriber.
Task: Listen to the attached audio and provide a highly accurate, verbatim transcript.

Language rules:
- If the audio is in a foreign language, transcribe it and then provide a %s translation for each section.
- If the audio is already in %s, just provide the transcript.

Format:
Use clear paragraph breaks. Label speakers if possible.

Start with a Title: "# Audio Transcript"`, language, language)
	}

	return fmt.Sprintf(`Analyze the attached audio file.

Generate a comprehensive study guide in %s using this Markdown format:

# Summary
[Overview paragraph]

# Key Points
* [Point 1]
* [Point 2]
* [Point 3]

# Detailed Notes
* **[Topic]**: [Details]
* **[Topic]**: [Details]`, language)
}
