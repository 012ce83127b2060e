package main

import (
	"fmt"
	"syscall"

	"github.com/kontrolhq/kontrol-backend/internal/config"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

// hash-password generates the bcrypt hash for TEACHER_PASSWORD_HASH. Run it
// once when setting up a deployment; the plaintext never touches the config.
func main() {
	cfg := config.Load()

	fmt.Print("Enter teacher password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	fmt.Println()

	password := string(bytePassword)
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}

	fmt.Print("Repeat password: ")
	byteRepeat, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	fmt.Println()

	if password != string(byteRepeat) {
		fmt.Println("Error: Passwords do not match")
		return
	}

	hash, err := bcrypt.GenerateFromPassword(bytePassword, cfg.BcryptCost)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println("Add this to your environment:")
	fmt.Printf("TEACHER_PASSWORD_HASH=%s\n", string(hash))
}
