package model

// ExpiryKind selects which auto-expiry delay applies to bookings of a
// subcategory.  Book-type offers expire faster than everything else.
type ExpiryKind string

const (
	ExpiryKindBook  ExpiryKind = "BOOK"
	ExpiryKindOther ExpiryKind = "OTHER"
)

// Subcategory is an immutable catalog entry configuring the behaviour
// of every offer attached to it.  The catalog only changes at deploy
// time, so it is a hand-written closed table rather than database rows.
//
// Fields:
//  ID                – stable identifier referenced by offers.subcategory_id.
//  Label             – human-readable name.
//  IsEvent           – offers carry a beginning datetime on their stocks.
//  CanExpire         – bookings are auto-cancelled after the expiry delay.
//  IsDigitalDeposit  – bookings count against the digital spending cap.
//  IsPhysicalDeposit – bookings count against the physical spending cap.
//  CanBeDuo          – offers may enable duo booking (quantity 2).
//  OnlineOnly        – offers live on a virtual venue only.
//  Expiry            – which expiry delay class applies when CanExpire.
type Subcategory struct {
	ID                string
	Label             string
	IsEvent           bool
	CanExpire         bool
	IsDigitalDeposit  bool
	IsPhysicalDeposit bool
	CanBeDuo          bool
	OnlineOnly        bool
	Expiry            ExpiryKind
}

// Subcategories is the full catalog keyed by ID.  Offers referencing an
// unknown ID are rejected at creation time.
var Subcategories = map[string]Subcategory{
	"SEANCE_CINE": {
		ID: "SEANCE_CINE", Label: "Séance de cinéma",
		IsEvent: true, CanBeDuo: true,
	},
	"CONCERT": {
		ID: "CONCERT", Label: "Concert",
		IsEvent: true, CanBeDuo: true,
	},
	"FESTIVAL_MUSIQUE": {
		ID: "FESTIVAL_MUSIQUE", Label: "Festival de musique",
		IsEvent: true, CanBeDuo: true,
	},
	"SPECTACLE_REPRESENTATION": {
		ID: "SPECTACLE_REPRESENTATION", Label: "Spectacle vivant",
		IsEvent: true, CanBeDuo: true,
	},
	"VISITE_MUSEE": {
		ID: "VISITE_MUSEE", Label: "Visite de musée",
		IsEvent: true, CanBeDuo: true,
	},
	"LIVRE_PAPIER": {
		ID: "LIVRE_PAPIER", Label: "Livre papier",
		CanExpire: true, IsPhysicalDeposit: true, Expiry: ExpiryKindBook,
	},
	"LIVRE_AUDIO_PHYSIQUE": {
		ID: "LIVRE_AUDIO_PHYSIQUE", Label: "Livre audio sur support physique",
		CanExpire: true, IsPhysicalDeposit: true, Expiry: ExpiryKindBook,
	},
	"LIVRE_NUMERIQUE": {
		ID: "LIVRE_NUMERIQUE", Label: "Livre numérique",
		CanExpire: true, IsDigitalDeposit: true, OnlineOnly: true, Expiry: ExpiryKindBook,
	},
	"SUPPORT_PHYSIQUE_MUSIQUE": {
		ID: "SUPPORT_PHYSIQUE_MUSIQUE", Label: "Support physique (CD, vinyle...)",
		CanExpire: true, IsPhysicalDeposit: true, Expiry: ExpiryKindOther,
	},
	"SUPPORT_PHYSIQUE_FILM": {
		ID: "SUPPORT_PHYSIQUE_FILM", Label: "Support physique (DVD, Blu-ray...)",
		CanExpire: true, IsPhysicalDeposit: true, Expiry: ExpiryKindOther,
	},
	"INSTRUMENT": {
		ID: "INSTRUMENT", Label: "Achat d'instrument de musique",
		CanExpire: true, IsPhysicalDeposit: true, Expiry: ExpiryKindOther,
	},
	"VOD": {
		ID: "VOD", Label: "Vidéo à la demande",
		IsDigitalDeposit: true, OnlineOnly: true,
	},
	"ABO_PLATEFORME_MUSIQUE": {
		ID: "ABO_PLATEFORME_MUSIQUE", Label: "Abonnement plateforme musicale",
		IsDigitalDeposit: true, OnlineOnly: true,
	},
	"JEU_EN_LIGNE": {
		ID: "JEU_EN_LIGNE", Label: "Jeu vidéo en ligne",
		IsDigitalDeposit: true, OnlineOnly: true,
	},
	"ABO_BIBLIOTHEQUE": {
		ID: "ABO_BIBLIOTHEQUE", Label: "Abonnement bibliothèque",
	},
	"ATELIER_PRATIQUE_ART": {
		ID: "ATELIER_PRATIQUE_ART", Label: "Atelier de pratique artistique",
		IsEvent: true,
	},
}

// SubcategoryByID looks up a catalog entry.  The boolean is false for
// unknown IDs.
func SubcategoryByID(id string) (Subcategory, bool) {
	s, ok := Subcategories[id]
	return s, ok
}

// SubcategoryIDsWhere returns the IDs of all catalog entries matching
// the predicate, for building SQL IN lists.
func SubcategoryIDsWhere(pred func(Subcategory) bool) []string {
	ids := make([]string, 0, len(Subcategories))
	for id, s := range Subcategories {
		if pred(s) {
			ids = append(ids, id)
		}
	}
	return ids
}
