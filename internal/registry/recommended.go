package registry

import "modelconsole/pkg/types"

// recommended is the table shown by `models info`; sizes are download sizes.
var recommended = []types.RecommendedModel{
	{Name: "llama3", Size: "4.7 GB", Description: "Meta's latest general model, balanced quality and speed"},
	{Name: "mistral", Size: "4.1 GB", Description: "Strong open-weights model"},
	{Name: "phi3:mini", Size: "1.7 GB", Description: "Small and fast model from Microsoft"},
	{Name: "gemma:2b", Size: "1.4 GB", Description: "Small Google model for limited hardware"},
	{Name: "codegemma", Size: "4.9 GB", Description: "Tuned for code and programming"},
	{Name: "dolphin-phi3", Size: "4.8 GB", Description: "Phi3 variant tuned as an assistant"},
	{Name: "neural-chat", Size: "4.1 GB", Description: "Tuned for assistant conversations"},
	{Name: "llama3:8b", Size: "4.7 GB", Description: "8B variant of Llama3"},
	{Name: "llava", Size: "4.8 GB", Description: "Multimodal model that understands images"},
	{Name: "gemma:7b", Size: "4.2 GB", Description: "Full-size Gemma from Google"},
}

// Recommended returns a copy of the suggested-models table.
func Recommended() []types.RecommendedModel {
	return append([]types.RecommendedModel(nil), recommended...)
}
