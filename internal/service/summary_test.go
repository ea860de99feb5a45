package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestSummarizer_UsesCompletion(t *testing.T) {
	completer := new(MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything, summaryMaxTokens).
		Return("  A concise overview of cell biology.  ", nil)

	s := NewSummarizer(completer, nil, nil)
	got := s.Summarize(context.Background(), []string{"bio.pdf"}, "cells and organelles")

	assert.Equal(t, "A concise overview of cell biology.", got)
	completer.AssertExpectations(t)
}

func TestSummarizer_FallsBackToKeywords(t *testing.T) {
	completer := new(MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("", errBoom)

	s := NewSummarizer(completer, nil, nil)
	got := s.Summarize(context.Background(), []string{"bio.pdf"}, "mitochondria mitochondria ribosome ribosome ribosome nucleus")

	assert.Equal(t, "This document (bio.pdf) contains educational material covering topics related to ribosome, mitochondria, nucleus, designed to test understanding of key concepts and principles.", got)
}

func TestSummarizer_NoCompleter(t *testing.T) {
	s := NewSummarizer(nil, nil, nil)
	got := s.Summarize(context.Background(), []string{"a.pdf", "b.pdf"}, "")

	assert.Equal(t, "These 2 documents (a.pdf, b.pdf) contain educational material, designed to test understanding of key concepts and principles.", got)
}

func TestKeywordSummary_ManyFiles(t *testing.T) {
	got := KeywordSummary([]string{"a", "b", "c", "d"}, "")
	assert.Contains(t, got, "These 4 documents (a, b, c...)")
}

func TestTopKeywords_SkipsShortAndStopWords(t *testing.T) {
	got := topKeywords("The the the cat cat which which which energy energy", 3)
	assert.Equal(t, []string{"energy"}, got)
}
