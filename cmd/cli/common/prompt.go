package common

import (
	"errors"

	"github.com/charmbracelet/huh"
)

// ConfirmationPrompt asks a yes/no question. Aborting the form counts as no.
func ConfirmationPrompt(title, description string) (bool, error) {
	var confirmed bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&confirmed),
		),
	).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return confirmed, err
}
