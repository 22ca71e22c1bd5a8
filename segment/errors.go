package segment

import "errors"

// 调用方可通过 errors.Is 区分的错误类型
var (
	// ErrSessionNotLoaded 编码或解码会话尚未加载, 需先调用 Initialize
	ErrSessionNotLoaded = errors.New("sam: 会话未加载")

	// ErrImageEncodingFailed 图片缩放或像素序列化失败
	ErrImageEncodingFailed = errors.New("sam: 图片编码失败")

	// ErrInferenceRunFailed 推理引擎拒绝输入或执行出错
	ErrInferenceRunFailed = errors.New("sam: 推理失败")

	// ErrOutputMissing 推理结果缺少约定的输出张量
	ErrOutputMissing = errors.New("sam: 缺少输出张量")

	// ErrInvalidPrompt 提示点不符合约定
	ErrInvalidPrompt = errors.New("sam: 非法的提示")
)
