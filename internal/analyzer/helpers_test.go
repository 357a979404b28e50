package analyzer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shinyvision/twiglens/internal/config"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const postEntity = `<?php

namespace App\Entity;

use App\Repository\PostRepository;
use Doctrine\ORM\Mapping as ORM;

#[ORM\Entity(repositoryClass: PostRepository::class)]
class Post
{
    #[ORM\Id]
    #[ORM\Column]
    private ?int $id = null;

    #[ORM\Column(type: 'string')]
    public string $title = '';

    #[ORM\ManyToOne]
    private ?User $author = null;

    public function getAuthor(): ?User
    {
        return $this->author;
    }
}
`

const userEntity = `<?php

namespace App\Entity;

use Doctrine\ORM\Mapping as ORM;

#[ORM\Entity]
class User
{
    #[ORM\Column(type: 'string')]
    private string $name = '';

    public function getName(): string
    {
        return $this->name;
    }
}
`

const postRepository = `<?php

namespace App\Repository;

use Doctrine\ORM\EntityRepository;

class PostRepository extends EntityRepository
{
    public function findByAuthorName(string $name): array
    {
        return $this->getEntityManager()
            ->createQuery('SELECT p FROM App\Entity\Post p JOIN p.author a WHERE a.name = :name AND p.')
            ->getResult();
    }
}
`

const appExtension = `<?php

namespace App\Twig;

use App\Entity\User;
use Twig\Extension\AbstractExtension;
use Twig\TwigFunction;

class AppExtension extends AbstractExtension
{
    public function getFunctions(): array
    {
        return [
            new TwigFunction('current_user', [$this, 'currentUser']),
        ];
    }

    public function currentUser(): User
    {
        return new User();
    }
}
`

const showTemplate = `{% extends 'base.html.twig' %}
{% block body %}
  <h1>{{ post.title }}</h1>
  {{ post.author.name }}
  {% set me = current_user() %}
  {{ me. }}
{% endblock %}
`

func newTestWorkspace(t *testing.T) (*Workspace, string) {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"src/Entity/Post.php":               postEntity,
		"src/Entity/User.php":               userEntity,
		"src/Repository/PostRepository.php": postRepository,
		"src/Twig/AppExtension.php":         appExtension,
		"templates/base.html.twig":          "{% block body %}{% endblock %}",
		"templates/post/show.html.twig":     showTemplate,
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	cfg := config.NewConfig()
	cfg.WorkspaceRoot = root
	cfg.Autoload = config.AutoloadMap{PSR4: config.Psr4Map{`App\`: {"src"}}}
	cfg.Globals["post"] = `App\Entity\Post`
	cfg.Extensions = []string{`App\Twig\AppExtension`}
	return NewWorkspace(cfg), root
}

// positionOf returns the position delta bytes after the first occurrence of
// needle.
func positionOf(t *testing.T, content, needle string, delta int) protocol.Position {
	t.Helper()
	i := strings.Index(content, needle)
	require.GreaterOrEqual(t, i, 0, needle)
	return offsetToPosition(content, i+delta)
}

func labels(items []protocol.CompletionItem) []string {
	out := []string{}
	for _, item := range items {
		out = append(out, item.Label)
	}
	return out
}

func hoverText(t *testing.T, hover *protocol.Hover) string {
	t.Helper()
	require.NotNil(t, hover)
	content, ok := hover.Contents.(protocol.MarkupContent)
	require.True(t, ok)
	return content.Value
}
