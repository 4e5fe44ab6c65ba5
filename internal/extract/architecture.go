// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract derives enrichment fields from a record's free text using
// ordered pattern tables: model architecture, reported metrics, clinical
// specialty, and code links.
package extract

import "regexp"

// ArchitectureRule maps a pattern to a canonical architecture name.
type ArchitectureRule struct {
	Name     string
	Pattern  *regexp.Regexp
	Examples []string
}

func archRule(name, pattern string, examples ...string) ArchitectureRule {
	return ArchitectureRule{
		Name:     name,
		Pattern:  regexp.MustCompile(`(?i)` + pattern),
		Examples: examples,
	}
}

// architectureRules is evaluated top to bottom and the first match wins.
// Numbered variants come before their family, named models before generic
// families, and the broad CNN/RNN/MLP classes come last. A new rule must be
// placed above every rule whose pattern it could also satisfy.
var architectureRules = []ArchitectureRule{
	// Numbered variants.
	archRule("Med-PaLM 2", `\bmed-?palm[-\s]?2\b`, "Med-PaLM 2"),
	archRule("GPT-4", `\bgpt-?4(?:o|v)?\b`, "GPT-4", "GPT-4V", "gpt4"),
	archRule("GPT-3.5", `\bgpt-?3\.5\b`, "GPT-3.5"),
	archRule("ResNet-152", `\bresnet[-\s]?152\b`, "ResNet-152"),
	archRule("ResNet-101", `\bresnet[-\s]?101\b`, "ResNet101"),
	archRule("ResNet-50", `\bresnet[-\s]?50\b`, "ResNet-50", "resnet50"),
	archRule("ResNet-34", `\bresnet[-\s]?34\b`, "ResNet-34"),
	archRule("ResNet-18", `\bresnet[-\s]?18\b`, "ResNet18"),
	archRule("DenseNet-121", `\bdensenet[-\s]?121\b`, "DenseNet-121", "CheXNet DenseNet121"),
	archRule("DenseNet-169", `\bdensenet[-\s]?169\b`, "DenseNet169"),
	archRule("DenseNet-201", `\bdensenet[-\s]?201\b`, "DenseNet-201"),
	archRule("VGG-16", `\bvgg[-\s]?16\b`, "VGG16"),
	archRule("VGG-19", `\bvgg[-\s]?19\b`, "VGG-19"),
	archRule("Inception-v3", `\binception[-\s]?v3\b`, "Inception-v3", "InceptionV3"),

	// Named models.
	archRule("Med-PaLM", `\bmed-?palm\b`, "Med-PaLM"),
	archRule("BioGPT", `\bbio-?gpt\b`, "BioGPT"),
	archRule("ClinicalBERT", `clinical-?bert\b`, "ClinicalBERT", "Bio_ClinicalBERT"),
	archRule("BioBERT", `\bbio-?bert\b`, "BioBERT"),
	archRule("PubMedBERT", `\bpubmed-?bert\b`, "PubMedBERT"),
	archRule("RoBERTa", `\broberta\b`, "RoBERTa"),
	archRule("Swin Transformer", `\bswin(?:[-\s]?transformer|[-\s]?unetr|-[tsbl])\b`, "Swin Transformer", "Swin-T"),
	archRule("Vision Transformer", `\b(?:vision[-\s]transformers?|vit(?:-[bslh](?:/\d+)?)?)\b`, "Vision Transformer", "ViT-B/16"),
	archRule("nnU-Net", `\bnn-?u-?net\b`, "nnU-Net"),
	archRule("U-Net++", `\bu-?net\s?\+\+`, "UNet++", "U-Net++"),
	archRule("Attention U-Net", `\battention[-\s]u-?net\b`, "Attention U-Net"),
	archRule("Mask R-CNN", `\bmask[-\s]?r-?cnn\b`, "Mask R-CNN"),
	archRule("Faster R-CNN", `\bfaster[-\s]?r-?cnn\b`, "Faster R-CNN"),
	archRule("YOLO", `\byolo(?:v\d+)?\b`, "YOLOv5"),
	archRule("CycleGAN", `\bcycle-?gan\b`, "CycleGAN"),
	archRule("ResNet", `\bresnets?\b`, "ResNet"),
	archRule("DenseNet", `\bdensenets?\b`, "DenseNet"),
	archRule("EfficientNet", `\befficientnet(?:[-\s]?b\d)?\b`, "EfficientNet-B4"),
	archRule("VGG", `\bvgg(?:net)?\b`, "VGGNet"),
	archRule("Inception", `\binception(?:[-\s]?(?:v\d|resnet))?\b`, "InceptionV4"),
	archRule("MobileNet", `\bmobilenet(?:[-\s]?v\d)?\b`, "MobileNetV2"),
	archRule("AlexNet", `\balexnet\b`, "AlexNet"),
	archRule("LLaMA", `\bllama[-\s]?\d?\b`, "LLaMA 2", "Llama-3"),
	archRule("GPT", `\bgpt(?:-?[23])?\b`, "GPT-2"),
	archRule("BERT", `\bbert\b`, "BERT"),
	archRule("U-Net", `\bu-?net\b`, "U-Net", "UNet"),
	archRule("XGBoost", `\bxgboost\b`, "XGBoost"),
	archRule("LightGBM", `\blightgbm\b`, "LightGBM"),

	// Families.
	archRule("Transformer", `\btransformers?\b`, "transformer-based"),
	archRule("GAN", `\b(?:gans?|generative adversarial networks?)\b`, "GAN"),
	archRule("Diffusion Model", `\b(?:diffusion models?|ddpms?|latent diffusion)\b`, "latent diffusion"),
	archRule("Graph Neural Network", `\b(?:graph neural networks?|gnns?|graph convolutional networks?|gcns?)\b`, "GNN"),
	archRule("Autoencoder", `\b(?:(?:variational\s+)?auto-?encoders?|vaes?)\b`, "autoencoder"),
	archRule("LSTM", `\b(?:lstms?|long short-term memory)\b`, "LSTM"),
	archRule("GRU", `\b(?:grus?|gated recurrent units?)\b`, "GRU"),
	archRule("Random Forest", `\brandom forests?\b`, "random forest"),
	archRule("SVM", `\b(?:svms?|support vector machines?)\b`, "SVM"),
	archRule("Logistic Regression", `\blogistic regression\b`, "logistic regression"),

	// Generic classes.
	archRule("RNN", `\b(?:rnns?|recurrent neural networks?)\b`, "RNN"),
	archRule("CNN", `\b(?:cnns?|convolutional neural networks?|convnets?)\b`, "CNN", "convolutional neural network"),
	archRule("MLP", `\b(?:mlps?|multi-?layer perceptrons?)\b`, "MLP"),
}

// ArchitectureRules returns a copy of the ordered rule table.
func ArchitectureRules() []ArchitectureRule {
	out := make([]ArchitectureRule, len(architectureRules))
	copy(out, architectureRules)
	return out
}

// Architecture returns the canonical name of the first rule that matches
// anywhere in text, or "" when nothing matches. Rule order, not position in
// the text, decides between overlapping names.
func Architecture(text string) string {
	if text == "" {
		return ""
	}
	for _, r := range architectureRules {
		if r.Pattern.MatchString(text) {
			return r.Name
		}
	}
	return ""
}
