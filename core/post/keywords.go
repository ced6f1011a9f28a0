package post

import (
	"bufio"
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/siherrmann/diffuser/helper"
	"github.com/siherrmann/diffuser/model"
)

var (
	linkPattern  = regexp.MustCompile(`^(https?://|www\.)`)
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	tokenPattern = regexp.MustCompile(`(?:https?://|www\.)\S+|[^\s@]+@[^\s@]+\.[^\s@]+|@\w+|#?[\p{L}\p{N}_]+(?:['’][\p{L}]+)*|\S`)
)

// stopwords is the english stopword list plus the retweet marker
var stopwords = model.NewStringSet(
	"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you", "you're", "you've",
	"you'll", "you'd", "your", "yours", "yourself", "yourselves", "he", "him", "his",
	"himself", "she", "she's", "her", "hers", "herself", "it", "it's", "its", "itself",
	"they", "them", "their", "theirs", "themselves", "what", "which", "who", "whom", "this",
	"that", "that'll", "these", "those", "am", "is", "are", "was", "were", "be", "been",
	"being", "have", "has", "had", "having", "do", "does", "did", "doing", "a", "an", "the",
	"and", "but", "if", "or", "because", "as", "until", "while", "of", "at", "by", "for",
	"with", "about", "against", "between", "into", "through", "during", "before", "after",
	"above", "below", "to", "from", "up", "down", "in", "out", "on", "off", "over", "under",
	"again", "further", "then", "once", "here", "there", "when", "where", "why", "how", "all",
	"any", "both", "each", "few", "more", "most", "other", "some", "such", "no", "nor", "not",
	"only", "own", "same", "so", "than", "too", "very", "s", "t", "can", "will", "just", "don",
	"don't", "should", "should've", "now", "d", "ll", "m", "o", "re", "ve", "y", "ain",
	"aren", "aren't", "couldn", "couldn't", "didn", "didn't", "doesn", "doesn't", "hadn",
	"hadn't", "hasn", "hasn't", "haven", "haven't", "isn", "isn't", "ma", "mightn",
	"mightn't", "mustn", "mustn't", "needn", "needn't", "shan", "shan't", "shouldn",
	"shouldn't", "wasn", "wasn't", "weren", "weren't", "won", "won't", "wouldn", "wouldn't",
	"rt",
)

// Keywords returns the sorted, unique keyword tokens of a post text.
// Handles, links, emails, tokens not starting with a word character and
// stopwords are dropped. Tokens are lowercased.
func Keywords(text string) []string {
	seen := model.StringSet{}
	for _, token := range tokenPattern.FindAllString(text, -1) {
		if strings.HasPrefix(token, "@") || linkPattern.MatchString(token) || emailPattern.MatchString(token) {
			continue
		}
		first := []rune(token)[0]
		if !(unicode.IsLetter(first) || unicode.IsDigit(first) || first == '_') {
			continue
		}
		token = strings.ToLower(token)
		if stopwords.Has(token) {
			continue
		}
		seen.Add(token)
	}
	return seen.Sorted()
}

// ReadKeywords reads one keyword per line. Keywords are lowercased and trimmed,
// empty lines are skipped.
func ReadKeywords(r io.Reader) ([]string, error) {
	keywords := []string{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		keyword := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if keyword != "" {
			keywords = append(keywords, keyword)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, helper.NewError("read keywords", err)
	}
	return keywords, nil
}
