package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strconv"
	"strings"

	sam "github.com/getcharzp/go-sam"
	"github.com/getcharzp/go-sam/config"
	"github.com/getcharzp/go-sam/segment"
	"github.com/getcharzp/go-sam/utils"
	"github.com/up-zero/gotool/imageutil"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML config file")
	imagePath := flag.String("image", "", "Path to input image")
	pointsFlag := flag.String("points", "", `Point prompts "x,y,fg;x,y,bg"`)
	boxFlag := flag.String("box", "", `Box prompt "x1,y1,x2,y2"`)
	outPath := flag.String("out", "mask.png", "Output mask path")
	overlayPath := flag.String("overlay", "", "Optional overlay output path")
	fontPath := flag.String("font", "", "Font used to draw the score on the overlay")
	verbose := flag.Bool("v", false, "Verbose logging")

	flag.Parse()

	if *imagePath == "" || (*pointsFlag == "" && *boxFlag == "") {
		fmt.Fprintln(os.Stderr, "Usage: samcli -image IMAGE (-points PROMPTS | -box BOX) [OPTIONS]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	mode := "release"
	if *verbose {
		mode = "debug"
	}
	if err := utils.InitLogger(mode); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer utils.Sync()

	if err := run(*configPath, *imagePath, *pointsFlag, *boxFlag, *outPath, *overlayPath, *fontPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, imagePath, pointsFlag, boxFlag, outPath, overlayPath, fontPath string) error {
	cfg := config.New(configPath)

	img, err := imageutil.Open(imagePath)
	if err != nil {
		return fmt.Errorf("打开图片失败: %w", err)
	}

	manager := segment.NewManager(cfg.Model.Segment(), segment.WithLogger(utils.Logger))
	if err := manager.Initialize(); err != nil {
		return err
	}
	defer func() { _ = manager.Close() }()

	res, err := segment.NewImageEncoder(manager, nil).Encode(img)
	if err != nil {
		return err
	}

	decoder := segment.NewMaskDecoder(manager)
	var (
		out    *segment.DecodeResult
		points []segment.Point
		box    *segment.Box
	)
	if boxFlag != "" {
		b, err := parseBox(boxFlag)
		if err != nil {
			return err
		}
		box = &b
		out, err = decoder.DecodeBox(res, b.Points())
		if err != nil {
			return err
		}
	} else {
		points, err = parsePoints(pointsFlag)
		if err != nil {
			return err
		}
		out, err = decoder.DecodePoints(res, points)
		if err != nil {
			return err
		}
	}

	idx, score := out.Best()
	mask, err := out.MaskImage(idx, res.OriginalSize())
	if err != nil {
		return err
	}
	if err := imageutil.Save(outPath, mask, 100); err != nil {
		return fmt.Errorf("保存 mask 失败: %w", err)
	}
	utils.Logger.Info("mask generated", zap.Int("index", idx), zap.Float32("score", score), zap.String("out", outPath))
	fmt.Printf("Mask generated, score: %.4f\n", score)

	if overlayPath == "" {
		return nil
	}
	return saveOverlay(img, mask, points, box, score, overlayPath, fontPath)
}

// saveOverlay 绘制 mask、提示点和得分
func saveOverlay(img image.Image, mask *image.Gray, points []segment.Point, box *segment.Box, score float32, path, fontPath string) error {
	d, err := sam.NewDrawer(fontPath)
	if err != nil {
		return err
	}
	defer d.Close()

	dst := d.Overlay(img, mask, sam.MaskColor)
	for _, p := range points {
		c := sam.ForegroundColor
		if p.Role == segment.Background {
			c = sam.BackgroundColor
		}
		d.DrawPoint(dst, image.Point{X: int(p.X), Y: int(p.Y)}, c)
	}
	if box != nil {
		d.DrawBox(dst, image.Rect(int(box.X1), int(box.Y1), int(box.X2), int(box.Y2)), sam.ForegroundColor)
	}
	d.DrawText(dst, fmt.Sprintf("score %.3f", score), 10, 24, sam.ForegroundColor)

	if err := imageutil.Save(path, dst, 100); err != nil {
		return fmt.Errorf("保存叠加图失败: %w", err)
	}
	return nil
}

// parsePoints 解析 "x,y,fg;x,y,bg", 省略标签时为前景
func parsePoints(s string) ([]segment.Point, error) {
	var points []segment.Point
	for _, item := range strings.Split(s, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ",")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("非法的提示点: %q", item)
		}
		xy, err := parseFloats(parts[:2])
		if err != nil {
			return nil, fmt.Errorf("非法的提示点 %q: %w", item, err)
		}
		p := segment.Point{X: xy[0], Y: xy[1], Role: segment.Foreground}
		if len(parts) == 3 {
			switch strings.TrimSpace(parts[2]) {
			case "fg", "foreground":
			case "bg", "background":
				p.Role = segment.Background
			default:
				return nil, fmt.Errorf("非法的标签: %q", parts[2])
			}
		}
		points = append(points, p)
	}
	return points, nil
}

// parseBox 解析 "x1,y1,x2,y2"
func parseBox(s string) (segment.Box, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return segment.Box{}, fmt.Errorf("非法的矩形框: %q", s)
	}
	v, err := parseFloats(parts)
	if err != nil {
		return segment.Box{}, fmt.Errorf("非法的矩形框 %q: %w", s, err)
	}
	return segment.Box{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}, nil
}

func parseFloats(parts []string) ([]float32, error) {
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}
