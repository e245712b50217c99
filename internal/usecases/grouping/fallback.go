package grouping

import (
	"fmt"

	"github.com/lightwork87/fashion-analyzer-pro/internal/domain"
)

// fallbackGroups детерминированная разбивка n фото на группы фиксированного
// размера. Один проход по индексам в исходном порядке, без переупорядочивания.
//
// Размер группы считается от целевого числа групп:
// targetGroups = min(maxGroups, ceil(n/averageImagesPerItem)),
// groupSize = ceil(n/targetGroups), обрезанный maxGroupSize.
//
// Политика переполнения: если лимит maxGroups достигнут раньше, чем кончились
// индексы, последняя группа вбирает весь остаток - ни один индекс не теряется.
// Возвращает degraded=true, когда последняя группа вышла за номинальный размер
func fallbackGroups(n int) (groups []domain.ItemGroup, degraded bool) {
	if n <= 0 {
		return nil, false
	}

	targetGroups := ceilDiv(n, averageImagesPerItem)
	if targetGroups > maxGroups {
		targetGroups = maxGroups
	}

	groupSize := ceilDiv(n, targetGroups)
	if groupSize > maxGroupSize {
		groupSize = maxGroupSize
	}

	groups = make([]domain.ItemGroup, 0, targetGroups)
	current := make([]int, 0, groupSize)

	for i := 0; i < n; i++ {
		current = append(current, i)
		// Последняя разрешённая группа не закрывается до конца входа
		if len(current) == groupSize && len(groups) < maxGroups-1 {
			groups = append(groups, newFallbackGroup(current, len(groups)))
			current = make([]int, 0, groupSize)
		}
	}

	if len(current) > 0 {
		if len(current) > groupSize {
			degraded = true
		}
		groups = append(groups, newFallbackGroup(current, len(groups)))
	}

	return groups, degraded
}

func newFallbackGroup(indices []int, ordinal int) domain.ItemGroup {
	return domain.ItemGroup{
		Indices:       indices,
		SuggestedName: fmt.Sprintf("Item %d", ordinal+1),
		Confidence:    fallbackConfidence,
	}
}

// validateAIGroups проверяет, что ответ модели - корректное разбиение индексов
// 0..n-1: группы непусты, каждый индекс встречается ровно один раз, лимиты
// размера и числа групп соблюдены. Некорректный ответ отбрасывается целиком,
// частичные результаты с fallback не смешиваются
func validateAIGroups(groups []domain.ItemGroup, n int) error {
	if len(groups) == 0 {
		return fmt.Errorf("empty group list")
	}
	if len(groups) > maxGroups {
		return fmt.Errorf("too many groups: %d > %d", len(groups), maxGroups)
	}

	seen := make([]bool, n)
	total := 0
	for gi, group := range groups {
		if len(group.Indices) == 0 {
			return fmt.Errorf("group %d is empty", gi)
		}
		if len(group.Indices) > maxGroupSize {
			return fmt.Errorf("group %d exceeds max size: %d > %d", gi, len(group.Indices), maxGroupSize)
		}
		for _, idx := range group.Indices {
			if idx < 0 || idx >= n {
				return fmt.Errorf("group %d contains out-of-range index %d", gi, idx)
			}
			if seen[idx] {
				return fmt.Errorf("index %d assigned to more than one group", idx)
			}
			seen[idx] = true
			total++
		}
	}
	if total != n {
		return fmt.Errorf("groups cover %d of %d indices", total, n)
	}
	return nil
}

// clampConfidence приводит уверенность модели к [0,1]
func clampConfidence(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// ceilDiv целочисленное деление с округлением вверх
func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
