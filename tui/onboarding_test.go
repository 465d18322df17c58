package tui

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"sahabat/recommend"
)

func keyEnter() tea.Msg { return tea.KeyMsg{Type: tea.KeyEnter} }
func keyDown() tea.Msg  { return tea.KeyMsg{Type: tea.KeyDown} }
func keyLeft() tea.Msg  { return tea.KeyMsg{Type: tea.KeyLeft} }

func apply(t *testing.T, m onboardingModel, msgs ...tea.Msg) onboardingModel {
	t.Helper()
	for _, msg := range msgs {
		updated, _ := m.Update(msg)
		var ok bool
		m, ok = updated.(onboardingModel)
		if !ok {
			t.Fatalf("Update returned unexpected model type %T", updated)
		}
	}
	return m
}

func TestOnboardingShortPathCompletes(t *testing.T) {
	m := NewOnboardingModel(nil)

	// q1: Menabung, q2: Tidak ada (skips q3), q4 and q5 first options.
	m = apply(t, m,
		keyDown(), keyDown(), keyEnter(),
		keyDown(), keyDown(), keyDown(), keyDown(), keyDown(), keyEnter(),
		keyEnter(),
		keyEnter(),
	)

	if !m.done {
		t.Fatal("Expected flow to be complete after four questions on the short path")
	}
	if m.result != recommend.ProductCelengan {
		t.Errorf("Expected Celengan, got %q", m.result)
	}
}

func TestOnboardingSaveCommandRuns(t *testing.T) {
	var savedProduct recommend.Product
	m := NewOnboardingModel(func(p recommend.Product, a recommend.AnswerSet) error {
		savedProduct = p
		return nil
	})

	m = apply(t, m,
		keyDown(), keyDown(), keyEnter(),
		keyDown(), keyDown(), keyDown(), keyDown(), keyDown(), keyEnter(),
		keyEnter(),
	)

	updated, cmd := m.Update(keyEnter())
	m = updated.(onboardingModel)
	if !m.done {
		t.Fatal("Expected flow complete")
	}
	if cmd == nil {
		t.Fatal("Expected a save command")
	}

	msg := cmd()
	saved, ok := msg.(resultSavedMsg)
	if !ok {
		t.Fatalf("Expected resultSavedMsg, got %T", msg)
	}
	if saved.err != nil {
		t.Errorf("Unexpected save error: %v", saved.err)
	}
	if savedProduct != recommend.ProductCelengan {
		t.Errorf("Expected Celengan saved, got %q", savedProduct)
	}

	m = apply(t, m, msg)
	if m.saveState != "Hasil tersimpan." {
		t.Errorf("Unexpected save state: %q", m.saveState)
	}
}

func TestOnboardingBackRestoresCursor(t *testing.T) {
	m := NewOnboardingModel(nil)

	// Answer q1 with the second option, advance, then go back.
	m = apply(t, m, keyDown(), keyEnter())
	if m.flow.Current().ID != 2 {
		t.Fatalf("Expected question 2, got %d", m.flow.Current().ID)
	}

	m = apply(t, m, keyLeft())
	if m.flow.Current().ID != 1 {
		t.Fatalf("Expected question 1 after back, got %d", m.flow.Current().ID)
	}
	if m.selected != 1 {
		t.Errorf("Expected cursor on the previous answer, got %d", m.selected)
	}
}

func TestOnboardingFullPathVisitsConditional(t *testing.T) {
	m := NewOnboardingModel(nil)

	// q1 first option, q2 warung (keeps q3 visible).
	m = apply(t, m, keyEnter(), keyEnter())
	if m.flow.Current().ID != 3 {
		t.Fatalf("Expected conditional question, got %d", m.flow.Current().ID)
	}

	m = apply(t, m, keyEnter(), keyEnter(), keyEnter())
	if !m.done {
		t.Fatal("Expected flow complete after five questions")
	}
	if m.result != recommend.ProductModal {
		t.Errorf("Expected Modal, got %q", m.result)
	}
}

func TestEncodeAudioFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.ogg")
	content := []byte("fake audio bytes")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	encoded, err := EncodeAudioFile(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if encoded != base64.StdEncoding.EncodeToString(content) {
		t.Errorf("Unexpected encoding: %q", encoded)
	}

	empty, err := EncodeAudioFile("")
	if err != nil || empty != "" {
		t.Errorf("Expected empty attachment for empty path, got %q %v", empty, err)
	}

	if _, err := EncodeAudioFile(filepath.Join(t.TempDir(), "absent.ogg")); err == nil {
		t.Error("Expected error for missing file")
	}
}
