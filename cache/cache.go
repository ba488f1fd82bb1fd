package cache

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// The cache is a package used for large read-only objects that we only want
// to decode once per process, such as opening books. Several solvers in the
// same process (benchmark workers, the analysis worker) share one copy.

type cache struct {
	sync.Mutex
	objects map[string]any
}

type loadFunc func(key string) (any, error)

// GlobalObjectCache is our global object cache, of course.
var GlobalObjectCache *cache

var createOnce sync.Once

func (c *cache) load(key string, loadFunc loadFunc) error {
	log.Debug().Str("key", key).Msg("loading into cache")

	obj, err := loadFunc(key)
	if err != nil {
		return err
	}
	c.objects[key] = obj

	return nil
}

func (c *cache) get(key string, loadFunc loadFunc) (any, error) {
	c.Lock()
	defer c.Unlock()
	obj, ok := c.objects[key]
	if !ok {
		err := c.load(key, loadFunc)
		if err != nil {
			return nil, err
		}
		return c.objects[key], nil
	}
	log.Debug().Str("key", key).Msg("getting obj from cache")

	return obj, nil
}

func CreateGlobalObjectCache() {
	GlobalObjectCache = &cache{objects: make(map[string]any)}
}

// Load returns the object cached under key, calling loadFunc to produce it
// the first time. Failed loads are not cached.
func Load(key string, loadFunc loadFunc) (any, error) {
	createOnce.Do(func() {
		if GlobalObjectCache == nil {
			CreateGlobalObjectCache()
		}
	})
	return GlobalObjectCache.get(key, loadFunc)
}

// Evict drops key so the next Load reads it again. Used after a book file
// has been rewritten.
func Evict(key string) {
	if GlobalObjectCache == nil {
		return
	}
	GlobalObjectCache.Lock()
	defer GlobalObjectCache.Unlock()
	delete(GlobalObjectCache.objects, key)
}
