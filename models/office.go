package models

// DefaultOffice is the office label stamped on trips opened by users
// without a fixed gabinete
const DefaultOffice = "Administrativo/Geral"

// Offices is the fixed catalog of gabinete labels used as the trip's
// cost-center. Kept as data, not an enum, because the câmara renames
// offices between legislatures.
var Offices = []string{
	"Presidência - Charles do Oceano",
	"Gabinete - André Logos",
	"Gabinete - Chico Civil",
	"Gabinete - Cleiton Lucio",
	"Gabinete - Emilio Santiago",
	"Gabinete - Ewerton Vidal",
	"Gabinete - Fabricio Chaves",
	"Gabinete - Luana Marques",
	"Gabinete - Marcos Oliveira",
	"Gabinete - Marquim do Baxim",
	"Gabinete - Pacífico",
	"Gabinete - Paulo Jordão",
	"Gabinete - Renato Caldas",
	"Gabinete - Willian Faleiro",
	"Gabinete - Zé Lopes",
}

// ValidOffice reports whether the given label is in the gabinete catalog
func ValidOffice(label string) bool {
	for _, o := range Offices {
		if o == label {
			return true
		}
	}
	return false
}
