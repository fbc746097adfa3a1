package pipeline

import "fmt"

const promptTemplate = `Search for recent news articles about: %s

Find 3-5 actual news articles from credible sources (news websites, cybersecurity blogs, consumer protection agencies) and provide:
1. Article title
2. Source website name
3. Brief summary of the scam being reported (2-3 sentences)
4. How the scam works
5. Warning/advice from the article

Format each article as:
TITLE: [Article headline]
SOURCE: [Website name]
SUMMARY: [Brief description of what the article reports]
HOW IT WORKS: [Explanation of the scam method]
WARNING: [Safety advice from the article]
URL: [Article URL if available, otherwise search query]
---`

// BuildPrompt returns the generation prompt for one search query.
func BuildPrompt(query string) string {
	return fmt.Sprintf(promptTemplate, query)
}
