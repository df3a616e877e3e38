package system

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	AudioExtensions = []string{".mp3", ".wav", ".ogg", ".aif", ".aiff"}
	ImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".webp", ".pdf"}
)

// FindLatestAudio возвращает самый свежий аудио-файл в папке
func FindLatestAudio(dir string) (string, error) {
	path, err := FindLatest(dir, AudioExtensions)
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", fmt.Errorf("в папке %s не найдено аудио-файлов", dir)
	}
	return path, nil
}

// FindLatestImage возвращает самое свежее изображение. Если указан файл,
// поиск идет в его директории.
func FindLatestImage(path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	dir := path
	if !fi.IsDir() {
		dir = filepath.Dir(path)
	}

	latest, err := FindLatest(dir, ImageExtensions)
	if err != nil {
		return "", err
	}
	if latest == "" {
		return "", fmt.Errorf("в папке %s не найдено изображений", dir)
	}
	return latest, nil
}

// FindLatest returns the most recently modified file in dir with one of the
// extensions, or "" if there is none.
func FindLatest(dir string, extensions []string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !hasExtension(f.Name(), extensions) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}
	return latestFile, nil
}

func hasExtension(name string, extensions []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
