package segment

import sam "github.com/getcharzp/go-sam"

// 模型固定输入尺寸, 坐标变换、图片编码与 orig_im_size 共用
const (
	ModelWidth  = 1024
	ModelHeight = 684
)

// 张量名称
const (
	inputImage      = "input_image"
	imageEmbeddings = "image_embeddings"
	pointCoords     = "point_coords"
	pointLabels     = "point_labels"
	maskInput       = "mask_input"
	hasMaskInput    = "has_mask_input"
	origImSize      = "orig_im_size"
	outMasks        = "masks"
	outIouPred      = "iou_predictions"
	outLowResMasks  = "low_res_masks"
)

const (
	// maskInputSize mask_input 的边长
	maskInputSize = 256
	// maskThreshold mask logits 二值化阈值
	maskThreshold = 0.0
)

var (
	encoderInputs  = []string{inputImage}
	encoderOutputs = []string{imageEmbeddings}
	decoderInputs  = []string{imageEmbeddings, pointCoords, pointLabels, maskInput, hasMaskInput, origImSize}
	decoderOutputs = []string{outMasks, outIouPred, outLowResMasks}
)

// Label 提示点标签, 取值与解码网络的约定一致
type Label float32

const (
	LabelPadding        Label = -1 // 填充点
	LabelBackground     Label = 0  // 背景/排除
	LabelForeground     Label = 1  // 前景/点击
	LabelBoxTopLeft     Label = 2  // 框选左上
	LabelBoxBottomRight Label = 3  // 框选右下
)

// Config 配置项
type Config struct {
	// 必填参数
	OnnxRuntimeLibPath string // onnxruntime.dll (或 .so, .dylib) 的路径
	EncodeModelPath    string // 图片特征提取模型
	DecodeModelPath    string // Mask解码模型

	// 可选参数
	UseCuda       bool   // (可选) 是否启用 CUDA
	NumThreads    int    // (可选) ONNX 线程数, 默认由CPU核心数决定
	LogLevel      string // (可选) verbose/info/warning/error/fatal, 默认 warning
	ModelFormat   string // (可选) 模型格式提示 ONNX/ORT, 默认 ONNX
	SerializeRuns bool   // (可选) 同一会话同一时刻只执行一次推理
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		OnnxRuntimeLibPath: sam.DefaultLibraryPath(),
		EncodeModelPath:    "./sam_weights/encoder.onnx",
		DecodeModelPath:    "./sam_weights/decoder.onnx",
		LogLevel:           "warning",
		ModelFormat:        "ONNX",
	}
}
