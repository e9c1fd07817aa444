package models

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles a user can hold. Motorista can only open and close trips;
// Admin additionally manages users, vehicles and reports.
const (
	RoleAdmin  = "Admin"
	RoleDriver = "Motorista"
)

// User holds the structure for the user collection in mongo
type User struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Details UserDetails        `json:"user" bson:"user"`
	Version int32              `json:"__v" bson:"__v"`
}

// UserDetails holds the structure for the inner user structure as defined
// in the user collection in mongo
type UserDetails struct {
	Name      string      `json:"name" bson:"name"`
	CPF       string      `json:"cpf" bson:"cpf"`
	Password  string      `json:"-" bson:"password"`
	Role      string      `json:"role" bson:"role"`
	Active    bool        `json:"active" bson:"active"`
	Office    string      `json:"office" bson:"office"`
	CreatedAt interface{} `json:"createdAt" bson:"createdAt"`
	UpdatedAt interface{} `json:"updatedAt" bson:"updatedAt"`
}

// NormalizeCPF strips the formatting punctuation users type into CPF
// fields, leaving the bare 11 digits
func NormalizeCPF(cpf string) string {
	cpf = strings.ReplaceAll(cpf, ".", "")
	cpf = strings.ReplaceAll(cpf, "-", "")
	return strings.TrimSpace(cpf)
}

// ValidCPF reports whether the login identifier is an 11-digit numeric string
func ValidCPF(cpf string) bool {
	if len(cpf) != 11 {
		return false
	}
	for _, r := range cpf {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
