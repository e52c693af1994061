package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xiaot623/gogo/searchstream/internal/domain"
)

// ApologyText is forwarded in place of a stage's output when the model fails.
const ApologyText = "Some errors seem to have occurred, please retry"

// Category templates take the citation context and then the history text.
const (
	DefaultAnswerPrompt = `You are a helpful search assistant. You are given a user question and a set of
contexts, each starting with a reference number like [citation:x]. Write an accurate,
concise answer using only the contexts. Cite the contexts you use with their reference
number, like [citation:1]. If the contexts are not relevant, say so instead of guessing.

Here are the contexts:

%s

Here is the earlier conversation, if any:
%s

Answer in the same language as the question.`

	AcademicPrompt = `You are an academic research assistant. You are given a user question and a set
of paper and article excerpts, each starting with a reference number like [citation:x].
Answer precisely, name methods and findings, and cite every claim with its reference
number, like [citation:2]. Point out disagreements between sources.

Here are the excerpts:

%s

Here is the earlier conversation, if any:
%s`

	NewsPrompt = `You are a news assistant. You are given a user question and a set of recent news
snippets, each starting with a reference number like [citation:x]. Summarize what
happened, mention dates when the snippets include them, and cite each fact with its
reference number, like [citation:3].

Here are the news snippets:

%s

Here is the earlier conversation, if any:
%s`

	IndieMakerPrompt = `You are an assistant for indie makers and solo founders. You are given a user
question and a set of posts from maker communities, each starting with a reference
number like [citation:x]. Give practical, experience-based advice, name concrete tools
and numbers when the posts mention them, and cite each point with its reference number,
like [citation:1].

Here are the posts:

%s

Here is the earlier conversation, if any:
%s`
)

// Templates that receive the sources as indented JSON.
const (
	HackerNewsPrompt = `You are a Hacker News assistant. Below is a JSON list of Hacker News stories and
comments with their url, title and content. Answer the user question from these items,
highlight notable opinions, and link the items you use by their url.

%s`

	SummaryPrompt = `You are a web page summarizer. Below is a JSON list with the content of one or
more web pages. Summarize the pages in a few short paragraphs followed by the key
takeaways as a bullet list, then answer the user question if there is one.

%s`
)

// RelatedPrompt takes the citation context.
const RelatedPrompt = `You help users explore a topic further. Based on the user question and the
contexts below, write 3 follow-up questions the user is likely to ask next. Each
question must be answerable from the contexts, at most 20 words, and on its own line.
Do not number the questions or add any other text.

Here are the contexts:

%s`

// FormatCitations renders sources as "[citation:i] content" blocks joined by
// blank lines. i is the 1-based position in sources.
func FormatCitations(sources []domain.TextSource) string {
	blocks := make([]string, len(sources))
	for i, src := range sources {
		blocks[i] = fmt.Sprintf("[citation:%d] %s", i+1, src.Content)
	}
	return strings.Join(blocks, "\n\n")
}

func categoryPrompt(category domain.SearchCategory) string {
	switch category {
	case domain.CategoryAcademic:
		return AcademicPrompt
	case domain.CategoryNews:
		return NewsPrompt
	case domain.CategoryIndieMaker:
		return IndieMakerPrompt
	default:
		return DefaultAnswerPrompt
	}
}

// AnswerSystemPrompt builds the system prompt of the answer stage.
func AnswerSystemPrompt(category domain.SearchCategory, sources []domain.TextSource, history string) (string, error) {
	switch category {
	case domain.CategoryHackerNews, domain.CategoryWebPage:
		if sources == nil {
			sources = []domain.TextSource{}
		}
		data, err := json.MarshalIndent(sources, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode sources: %w", err)
		}
		tmpl := SummaryPrompt
		if category == domain.CategoryHackerNews {
			tmpl = HackerNewsPrompt
		}
		return fmt.Sprintf(tmpl, data), nil
	}
	return fmt.Sprintf(categoryPrompt(category), FormatCitations(sources), history), nil
}

// RelatedSystemPrompt builds the system prompt of the related-questions stage.
func RelatedSystemPrompt(sources []domain.TextSource) string {
	return fmt.Sprintf(RelatedPrompt, FormatCitations(sources))
}
