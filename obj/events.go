package obj

import "log"

// AttachListener is the outward notification surface of the attachment
// graph. Audio, UI and camera collaborators hang off of it; the core never
// calls them directly.
type AttachListener interface {
	OnAttachSucceeded(item *CargoItem)
	OnAttachFailed(item *CargoItem)
	OnDetached(item *CargoItem)
}

// LogListener is the default listener; it only logs.
type LogListener struct{}

func (LogListener) OnAttachSucceeded(item *CargoItem) {
	if item != nil {
		log.Printf("cargo attached: kind=%s weight=%.1f", item.Kind, item.Weight)
	}
}

func (LogListener) OnAttachFailed(item *CargoItem) {
	if item != nil {
		log.Printf("cargo attach rejected: kind=%s", item.Kind)
	}
}

func (LogListener) OnDetached(item *CargoItem) {
	if item != nil {
		log.Printf("cargo detached: kind=%s", item.Kind)
	}
}
