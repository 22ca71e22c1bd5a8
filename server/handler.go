// Package server 提供交互式分割的 HTTP 接口: 图片编码一次, 按提示多次解码。
package server

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"

	"github.com/getcharzp/go-sam/cache"
	"github.com/getcharzp/go-sam/segment"
	"github.com/getcharzp/go-sam/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Handler 分割接口
type Handler struct {
	manager *segment.Manager
	encoder *segment.ImageEncoder
	decoder *segment.MaskDecoder
	store   cache.Store
	maxSize int64
	logger  *zap.Logger
}

// NewHandler 创建 Handler, maxSize 为上传图片的最大字节数
func NewHandler(m *segment.Manager, store cache.Store, maxSize int64, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		manager: m,
		encoder: segment.NewImageEncoder(m, nil),
		decoder: segment.NewMaskDecoder(m),
		store:   store,
		maxSize: maxSize,
		logger:  logger,
	}
}

// Router 创建路由
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(Logger(h.logger))

	r.GET("/health", h.Health)

	api := r.Group("/api/v1")
	{
		api.POST("/encode", h.Encode)
		api.POST("/decode", h.Decode)
		api.POST("/reload", h.Reload)
	}
	return r
}

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"state":  h.manager.State().String(),
	})
}

// Encode 上传图片并提取特征, 相同图片直接命中缓存
func (h *Handler) Encode(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}
	if h.maxSize > 0 && file.Size > h.maxSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("file exceeds %d bytes", h.maxSize)})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	imageID := utils.BytesMD5(data)
	ctx := c.Request.Context()

	res, err := h.store.Get(ctx, imageID)
	if err != nil {
		h.logger.Warn("embedding cache read failed", zap.String("image_id", imageID), zap.Error(err))
	}
	cached := res != nil

	if !cached {
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported image: %v", err)})
			return
		}
		res, err = h.encoder.Encode(img)
		if err != nil {
			h.fail(c, err)
			return
		}
		if err := h.store.Set(ctx, imageID, res); err != nil {
			h.logger.Warn("embedding cache write failed", zap.String("image_id", imageID), zap.Error(err))
		}
	}

	size := res.OriginalSize()
	c.JSON(http.StatusOK, gin.H{
		"image_id": imageID,
		"width":    size.Width,
		"height":   size.Height,
		"cached":   cached,
	})
}

type pointRequest struct {
	X     float32 `json:"x"`
	Y     float32 `json:"y"`
	Label string  `json:"label"` // foreground / background
}

type boxRequest struct {
	X1 float32 `json:"x1"`
	Y1 float32 `json:"y1"`
	X2 float32 `json:"x2"`
	Y2 float32 `json:"y2"`
}

type decodeRequest struct {
	ImageID string         `json:"image_id" binding:"required"`
	Points  []pointRequest `json:"points"`
	Boxes   []boxRequest   `json:"boxes"`
}

// Decode 按提示解码, 返回得分最高的 mask (base64 PNG)
func (h *Handler) Decode(c *gin.Context) {
	var req decodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Points) > 0 && len(req.Boxes) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "points and boxes are mutually exclusive"})
		return
	}
	if len(req.Points) == 0 && len(req.Boxes) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "points or boxes required"})
		return
	}

	res, err := h.store.Get(c.Request.Context(), req.ImageID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if res == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "image not encoded"})
		return
	}

	var out *segment.DecodeResult
	if len(req.Boxes) > 0 {
		boxes := make([]segment.Box, 0, len(req.Boxes))
		for _, b := range req.Boxes {
			boxes = append(boxes, segment.Box{X1: b.X1, Y1: b.Y1, X2: b.X2, Y2: b.Y2})
		}
		out, err = h.decoder.DecodeBoxes(res, boxes)
	} else {
		points := make([]segment.Point, 0, len(req.Points))
		for _, p := range req.Points {
			role, ok := parseRole(p.Label)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown label %q", p.Label)})
				return
			}
			points = append(points, segment.Point{X: p.X, Y: p.Y, Role: role})
		}
		out, err = h.decoder.DecodePoints(res, points)
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	idx, score := out.Best()
	size := res.OriginalSize()
	mask, err := out.MaskImage(idx, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, mask); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"index":  idx,
		"score":  score,
		"width":  size.Width,
		"height": size.Height,
		"mask":   base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
}

// Reload 重新加载模型文件
func (h *Handler) Reload(c *gin.Context) {
	if err := h.manager.Reload(); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": h.manager.State().String()})
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("segment request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// statusOf 错误类型对应的 HTTP 状态码
func statusOf(err error) int {
	switch {
	case errors.Is(err, segment.ErrInvalidPrompt), errors.Is(err, segment.ErrImageEncodingFailed):
		return http.StatusBadRequest
	case errors.Is(err, segment.ErrSessionNotLoaded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func parseRole(label string) (segment.Role, bool) {
	switch label {
	case "", "foreground", "fg":
		return segment.Foreground, true
	case "background", "bg":
		return segment.Background, true
	default:
		return 0, false
	}
}
