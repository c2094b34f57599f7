package types

import "time"

// Model is a model installed in the inference daemon.
type Model struct {
	// Name as the daemon reports it, including the tag.
	// example: llama3:latest
	Name string `json:"name" example:"llama3:latest"`
	// Size on disk in bytes.
	// example: 4661224676
	Size int64 `json:"size" example:"4661224676"`
	// Human-readable size.
	// example: 4.3 GB
	SizeHuman string `json:"size_human" example:"4.3 GB"`
	// Content digest.
	// example: 365c0bd3c000
	Digest string `json:"digest,omitempty" example:"365c0bd3c000"`
	// Last modification time.
	ModifiedAt time.Time `json:"modified_at"`
	// True when this is the configured default model.
	Default bool `json:"default"`
}

// GPU is one row of nvidia-smi output, values as the tool prints them.
type GPU struct {
	// example: 0
	Index string `json:"index,omitempty" example:"0"`
	// example: NVIDIA GeForce RTX 3090
	Name string `json:"name,omitempty" example:"NVIDIA GeForce RTX 3090"`
	// Utilisation in percent.
	// example: 37
	Utilization string `json:"utilization,omitempty" example:"37"`
	// Memory in MiB.
	// example: 5120
	MemoryUsed string `json:"memory_used,omitempty" example:"5120"`
	// example: 24576
	MemoryTotal string `json:"memory_total,omitempty" example:"24576"`
}

// RecommendedModel is an entry of the suggested-models table.
type RecommendedModel struct {
	Name        string `json:"name"`
	Size        string `json:"size"`
	Description string `json:"description"`
}
