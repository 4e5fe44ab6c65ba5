// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Architectures is the controlled vocabulary of model architecture names a
// Record may carry. Names are canonical and compared exactly.
var Architectures = []string{
	"Med-PaLM 2", "Med-PaLM", "GPT-4", "GPT-3.5", "GPT", "LLaMA",
	"BioGPT", "ClinicalBERT", "BioBERT", "PubMedBERT", "RoBERTa", "BERT",
	"ResNet-152", "ResNet-101", "ResNet-50", "ResNet-34", "ResNet-18", "ResNet",
	"DenseNet-121", "DenseNet-169", "DenseNet-201", "DenseNet",
	"VGG-16", "VGG-19", "VGG", "Inception-v3", "Inception",
	"EfficientNet", "MobileNet", "AlexNet",
	"Swin Transformer", "Vision Transformer", "Transformer",
	"nnU-Net", "U-Net++", "Attention U-Net", "U-Net",
	"Mask R-CNN", "Faster R-CNN", "YOLO",
	"CycleGAN", "GAN", "Diffusion Model", "Autoencoder",
	"Graph Neural Network", "LSTM", "GRU", "RNN", "CNN", "MLP",
	"XGBoost", "LightGBM", "Random Forest", "SVM", "Logistic Regression",
}

// ValidArchitecture reports whether name belongs to Architectures.
func ValidArchitecture(name string) bool {
	for _, a := range Architectures {
		if a == name {
			return true
		}
	}
	return false
}
