package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"os"
	"time"

	"github.com/pkg/profile"
	log "github.com/sirupsen/logrus"

	"focusblur/internal/models"
	"focusblur/pkg/config"
	"focusblur/pkg/depth"
	"focusblur/pkg/diffusion"
	"focusblur/pkg/fftblur"
	"focusblur/pkg/pixel"
	"focusblur/pkg/shine"
)

func main() {
	// Parse command line arguments
	inputPath := flag.String("input", "", "Image to blur")
	outputPath := flag.String("output", "output.png", "Output image filename")
	depthPath := flag.String("depth", "", "Grayscale depth map, enables depth-aware blur")
	configPath := flag.String("config", "focusblur.yaml", "Configuration file")
	initConfig := flag.Bool("init-config", false, "Write a default configuration file and exit")
	radius := flag.Float64("radius", 0, "Override the model radius in pixels")
	focal := flag.Float64("focal", -1, "Override the focal depth in percent")
	quality := flag.String("quality", "", "Override the quality: defective, low or normal")
	shineLevel := flag.Float64("shine", 0, "Enable highlight boosting at this level in percent")
	selection := flag.String("select", "", "Blur only the rectangle x0,y0,x1,y1")
	previewScale := flag.Int("preview", 0, "Render a preview downscaled by this factor instead of the full image")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to create config file: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	// Validate inputs
	if *inputPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	level, err := log.ParseLevel(cfg.Output.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level %q: %v", cfg.Output.LogLevel, err)
	}
	log.SetLevel(level)

	switch cfg.Output.Profile {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	}

	store := cfg.Blur
	if *radius > 0 {
		store.ModelRadius = *radius
	}
	if *focal >= 0 {
		store.FocalDepth = *focal
	}
	if *quality != "" {
		q, err := models.ParseQuality(*quality)
		if err != nil {
			log.Fatalf("Invalid quality: %v", err)
		}
		store.Quality = q
		store.QualityPreview = q
	}
	if *shineLevel > 0 {
		store.EnableShine = true
		store.ShineLevel = *shineLevel
	}

	src, err := pixel.LoadImage(*inputPath)
	if err != nil {
		log.Fatalf("Failed to load image: %v", err)
	}
	drawable := pixel.FromImage(src)

	if *selection != "" {
		var r image.Rectangle
		if _, err := fmt.Sscanf(*selection, "%d,%d,%d,%d", &r.Min.X, &r.Min.Y, &r.Max.X, &r.Max.Y); err != nil {
			log.Fatalf("Invalid selection %q: %v", *selection, err)
		}
		drawable.Select(r.Canon())
	}

	p := &fftblur.Param{
		Store:           &store,
		Drawable:        drawable,
		Diffusion:       diffusion.New(),
		Shine:           shine.New(),
		MaxSourceBytes:  cfg.Processing.MaxSourceBytes,
		MaxWorkElements: cfg.Processing.MaxWorkElements,
	}

	if *depthPath != "" {
		depthImg, err := pixel.LoadImage(*depthPath)
		if err != nil {
			log.Fatalf("Failed to load depth map: %v", err)
		}
		p.DepthMap = depth.NewImageMap(depthImg)
		store.EnableDepthMap = true
	}

	var preview *pixel.ImagePreview
	if *previewScale > 1 {
		b := drawable.Bounds()
		scale := *previewScale
		area := image.NewNRGBA(image.Rect(0, 0, max(1, b.Dx()/scale), max(1, b.Dy()/scale)))
		preview = pixel.NewImagePreview(b.Min, b.Dx(), b.Dy(), drawable.BPP(), area)
	}

	fmt.Printf("Blurring %s (radius %.1f, quality %s)...\n", *inputPath, store.ModelRadius, store.Quality)
	startTime := time.Now()

	out, err := blur(p, preview)
	if errors.Is(err, fftblur.ErrNotApplicable) {
		log.Fatalf("Parameters not supported by the frequency-domain blur: %v", err)
	}
	if err != nil {
		log.Fatalf("Blur failed: %v", err)
	}

	if err := pixel.SaveImage(*outputPath, out); err != nil {
		log.Fatalf("Failed to save output: %v", err)
	}

	fmt.Printf("Completed in %.2f seconds\n", time.Since(startTime).Seconds())
	fmt.Printf("Output saved to: %s\n", *outputPath)
	if *depthPath != "" && !store.EnableDepthMap {
		fmt.Println("Warning: depth map could not be used, blurred without it")
	}
	if *shineLevel > 0 && !store.EnableShine {
		fmt.Println("Warning: highlight boosting was disabled")
	}
}

// blur runs one update, render and draw cycle and returns the image that
// received the result
func blur(p *fftblur.Param, preview *pixel.ImagePreview) (image.Image, error) {
	var pv pixel.Preview
	if preview != nil {
		pv = preview
	}

	buf, err := fftblur.Update(nil, p, pv)
	if err != nil {
		return nil, err
	}
	defer buf.Destroy()

	if n, ok := buf.Layers(); ok {
		log.WithField("layers", n).Info("depth layers in region")
	}

	if err := buf.Render(p); err != nil {
		return nil, err
	}
	if err := buf.Draw(); err != nil {
		return nil, err
	}

	if preview != nil {
		return preview.Area(), nil
	}
	return p.Drawable.(*pixel.ImageDrawable).Image(), nil
}
