package dashboard

import (
	"sync"
)

// Snapshot 是界面状态的只读副本。
type Snapshot struct {
	Section Section `json:"section"`
	Theme   Theme   `json:"theme"`
	Version uint64  `json:"version"`
}

// State 保存当前页面与配色，并向订阅者广播变化。
type State struct {
	mu      sync.Mutex
	section Section
	theme   Theme
	version uint64
	nextSub int
	subs    map[int]chan Snapshot
}

// NewState 创建初始状态：首页、深色主题。
func NewState() *State {
	return &State{
		section: SectionHome,
		theme:   ThemeDark,
		subs:    make(map[int]chan Snapshot),
	}
}

// Navigate 切换页面，未知页面回到首页。返回实际切换到的页面。
func (s *State) Navigate(section Section) Section {
	if !section.Valid() {
		section = SectionHome
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.section != section {
		s.section = section
		s.bumpLocked()
	}
	return section
}

// SetTheme 切换配色，非法值被忽略并返回 false。
func (s *State) SetTheme(theme Theme) bool {
	if theme != ThemeDark && theme != ThemeLight {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.theme != theme {
		s.theme = theme
		s.bumpLocked()
	}
	return true
}

// ToggleTheme 在深浅色之间切换。
func (s *State) ToggleTheme() Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.theme == ThemeDark {
		s.theme = ThemeLight
	} else {
		s.theme = ThemeDark
	}
	s.bumpLocked()
	return s.theme
}

// Snapshot 返回当前状态。
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe 返回一个只读通道，每次状态变化都会收到最新快照。
// 消费过慢时旧快照会被丢弃，只保留最新的一份。调用返回的函数取消订阅。
func (s *State) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *State) snapshotLocked() Snapshot {
	return Snapshot{Section: s.section, Theme: s.theme, Version: s.version}
}

func (s *State) bumpLocked() {
	s.version++
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
