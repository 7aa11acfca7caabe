package services

import "errors"

var (
	// ErrBookNotFound is returned when no book exists for an ISBN.
	ErrBookNotFound = errors.New("book not found")
	// ErrReviewNotFound is returned when a user has no review on a book.
	ErrReviewNotFound = errors.New("no review found for this user")
	// ErrUserExists is returned when registering a taken username.
	ErrUserExists = errors.New("username already exists")
	// ErrInvalidUsername is returned when logging in as an unknown user.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidPassword is returned when the password does not match.
	ErrInvalidPassword = errors.New("invalid password")
)
