package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ahrav/go-judicatura/internal/domain"
	"github.com/ahrav/go-judicatura/internal/matching"
)

// ReadJSON decodes the JSON file at path into a value of type T.
func ReadJSON[T any](path string) (T, error) {
	var out T
	data, err := os.ReadFile(path)
	if err != nil {
		return out, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return out, nil
}

// LoadCandidates reads a canonical candidate collection.
func LoadCandidates(path string) ([]domain.Candidate, error) {
	return ReadJSON[[]domain.Candidate](path)
}

// LoadScoredEntries reads a scored collection. A missing file yields none.
func LoadScoredEntries(path string) ([]domain.ScoredEntry, error) {
	entries, err := ReadJSON[[]domain.ScoredEntry](path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return entries, err
}

// LoadQuestionnaire reads questions and a voter's answers.
func LoadQuestionnaire(questionsPath, answersPath string) ([]matching.Question, []matching.Answer, error) {
	questions, err := ReadJSON[[]matching.Question](questionsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("questions: %w", err)
	}
	answers, err := ReadJSON[[]matching.Answer](answersPath)
	if err != nil {
		return nil, nil, fmt.Errorf("answers: %w", err)
	}
	return questions, answers, nil
}

// LoadRawRecords reads a feed file and returns its records.
func LoadRawRecords(path string) ([]domain.RawRecord, error) {
	return readFeed(path)
}
